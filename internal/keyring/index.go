package keyring

import (
	"strings"
	"time"

	"github.com/picoHz/taxy-sub001/internal/ident"
)

// matchCandidate is one cert's contribution to a subject lookup: the
// specificity of the pattern that matched, used to rank matches
// before falling back to the tie-break rule in §4.2.
type matchCandidate struct {
	id          ident.ID
	specificity int
	notBefore   time.Time
}

// subjectIndex is the derived view described in §3: a rebuilt-on-
// mutation map from every distinct pattern suffix (the part of a
// hostname that can be looked up directly) to the certs offering a
// pattern that could match it. Because wildcard-left is the only
// supported wildcard form, every query host has exactly two relevant
// lookup keys: the exact host, and its "*.<parent>" wildcard form.
type subjectIndex struct {
	built bool
	exact map[string][]matchCandidate
	wild  map[string][]matchCandidate // keyed by the parent suffix, e.g. "example.com"
}

func buildSubjectIndex(order []ident.ID, certs map[ident.ID]*Cert) subjectIndex {
	idx := subjectIndex{
		built: true,
		exact: make(map[string][]matchCandidate),
		wild:  make(map[string][]matchCandidate),
	}
	for _, id := range order {
		cert := certs[id]
		for _, subject := range cert.Info.Subjects {
			if !subject.Validate() {
				continue
			}
			cand := matchCandidate{
				id:          id,
				specificity: subject.specificity(),
				notBefore:   cert.Info.NotBefore,
			}
			s := strings.ToLower(string(subject))
			if strings.HasPrefix(s, "*.") {
				parent := s[2:]
				idx.wild[parent] = append(idx.wild[parent], cand)
			} else {
				idx.exact[s] = append(idx.exact[s], cand)
			}
		}
	}
	return idx
}

// lookup returns every candidate cert whose subject pattern matches
// host: an exact match on host itself, or a wildcard match against
// host's immediate parent domain.
func (idx subjectIndex) lookup(host string) []matchCandidate {
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	var out []matchCandidate
	out = append(out, idx.exact[host]...)

	if dot := strings.IndexByte(host, '.'); dot >= 0 {
		parent := host[dot+1:]
		label := host[:dot]
		if label != "" && !strings.Contains(label, ".") {
			out = append(out, idx.wild[parent]...)
		}
	}
	return out
}
