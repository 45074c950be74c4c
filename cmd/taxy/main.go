// Command taxy runs the control plane described by this repository:
// an admin HTTP surface, a single-threaded control loop, an ACME
// renewal scheduler, and a background health checker, coordinated
// entirely through a command queue and an event bus.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}
