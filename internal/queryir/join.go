package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlplan/internal/schema"
)

// JoinPath is an ordered list of join hops starting at a plan's entity.
type JoinPath []schema.JoinDescriptor

// PathOf builds a path from hops.
func PathOf(hops ...schema.JoinDescriptor) JoinPath {
	return JoinPath(hops)
}

// Then returns a new path extended by one hop. The receiver is not modified.
func (p JoinPath) Then(hop schema.JoinDescriptor) JoinPath {
	out := make(JoinPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, hop)
}

// Equal reports whether both paths have the same hops in the same order.
func (p JoinPath) Equal(other JoinPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading segment of p. A path is a
// prefix of itself.
func (p JoinPath) HasPrefix(prefix JoinPath) bool {
	return len(prefix) <= len(p) && p[:len(prefix)].Equal(prefix)
}

// Alias is the SQL alias for the table at the end of the path: one
// "<relation>__" segment per hop, e.g. "material__supplier__".
func (p JoinPath) Alias() string {
	var b strings.Builder
	for _, hop := range p {
		b.WriteString(hop.Relation)
		b.WriteString("__")
	}
	return b.String()
}

// Names returns the relation names hop by hop.
func (p JoinPath) Names() []string {
	names := make([]string, len(p))
	for i, hop := range p {
		names[i] = hop.Relation
	}
	return names
}

// String renders the dotted relation path, e.g. "material.supplier".
func (p JoinPath) String() string {
	return strings.Join(p.Names(), ".")
}

// MatchPath finds the declared path that equals required or extends it,
// returning that declared path truncated to required's depth. The first
// match in declaration order wins.
func MatchPath(declared []JoinPath, required JoinPath) (JoinPath, bool) {
	for _, d := range declared {
		if d.HasPrefix(required) {
			return d[:len(required)], true
		}
	}
	return nil, false
}

// MatchNames is MatchPath for a dotted relation path, as used by search
// columns that are configured by name.
func MatchNames(declared []JoinPath, dotted string) (JoinPath, bool) {
	names := strings.Split(dotted, ".")
	for _, d := range declared {
		if len(d) < len(names) {
			continue
		}
		ok := true
		for i, n := range names {
			if d[i].Relation != n {
				ok = false
				break
			}
		}
		if ok {
			return d[:len(names)], true
		}
	}
	return nil, false
}

// ResolvePath turns a dotted relation path into a JoinPath using the
// catalog's declarations, returning the entity at the end of the path.
func ResolvePath(catalog *schema.Catalog, root *schema.Entity, dotted string) (JoinPath, *schema.Entity, error) {
	hops, end, err := catalog.Path(root, dotted)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve join path: %w", err)
	}
	return JoinPath(hops), end, nil
}
