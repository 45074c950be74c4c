package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes from §6: 0 normal; 2 config-load error; 64 bad CLI
// args; 70 internal.
const (
	exitOK         = 0
	exitConfig     = 2
	exitUsage      = 64
	exitInternal   = 70
	buildVersion   = "dev"
	envConfigDir   = "TAXY_CONFIG_DIR"
	envLogLevel    = "TAXY_LOG"
	envAdminBind   = "TAXY_WEBUI_BIND"
	defaultRootDir = "."
)

// exitError pins a specific process exit code to an error returned
// from a subcommand's RunE, so run() doesn't have to guess what kind
// of failure it's looking at.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failConfig(err error) error   { return &exitError{code: exitConfig, err: err} }
func failInternal(err error) error { return &exitError{code: exitInternal, err: err} }

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taxy",
		Short:         "TLS-terminating reverse proxy control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config-dir", defaultRootDir, "config root directory (overridden by "+envConfigDir+")")
	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "taxy:", exitErr.err)
		return exitErr.code
	}

	// cobra itself rejected the invocation (unknown flag, bad
	// subcommand, arity mismatch) before any RunE ran.
	fmt.Fprintln(os.Stderr, "taxy:", err)
	return exitUsage
}

func configDir(cmd *cobra.Command) string {
	if v := os.Getenv(envConfigDir); v != "" {
		return v
	}
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}
