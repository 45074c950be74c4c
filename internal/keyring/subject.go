package keyring

import "strings"

// SubjectName is a DNS name bound to a certificate's subject
// alternative name set, or to a site's vhost pattern. A single
// wildcard label on the left is permitted: "*.example.com" matches
// any single label prepended to "example.com", but neither
// "example.com" itself nor "a.b.example.com".
type SubjectName string

// Validate reports whether name is well-formed per §4.2: non-empty,
// at most one leading wildcard label, no embedded wildcards, and no
// empty labels.
func (n SubjectName) Validate() bool {
	s := string(n)
	if s == "" {
		return false
	}
	labels := strings.Split(s, ".")
	for i, label := range labels {
		if label == "" {
			return false
		}
		if label == "*" {
			if i != 0 {
				return false
			}
			continue
		}
		if strings.Contains(label, "*") {
			return false
		}
	}
	return true
}

// Matches reports whether the pattern n matches the query host,
// applying the wildcard-left rule: "*.example.com" matches
// "a.example.com" but not "example.com" or "a.b.example.com".
// A non-wildcard pattern matches only the exact host.
func (n SubjectName) Matches(host string) bool {
	pattern := string(n)
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	pattern = strings.ToLower(pattern)

	if !strings.HasPrefix(pattern, "*.") {
		return pattern == host
	}

	suffix := pattern[1:] // ".example.com"
	if !strings.HasSuffix(host, suffix) {
		return false
	}
	// exactly one label must remain before suffix
	remainder := strings.TrimSuffix(host, suffix)
	return remainder != "" && !strings.Contains(remainder, ".")
}

// specificity orders patterns so that longer, non-wildcard patterns
// are preferred: used only as a pre-sort; final tie-breaking within
// equally-specific matches follows the §4.2 rule on the owning Cert.
func (n SubjectName) specificity() int {
	if strings.HasPrefix(string(n), "*.") {
		return len(n) - 1 // wildcard patterns rank below an equal-length exact match
	}
	return len(n) * 2
}
