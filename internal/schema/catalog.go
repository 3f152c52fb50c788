package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Catalog is a set of entities addressed by name. Join targets are checked
// against it when it is built, so Path never meets a dangling relation.
type Catalog struct {
	entities map[string]*Entity
}

// NewCatalog builds a catalog and checks it is closed: entity names and
// tables are set and unique, and every join targets an entity in the set.
// On success each entity is bound to the catalog, which lets plans follow
// join targets. Entities are shared, not copied.
func NewCatalog(entities ...*Entity) (*Catalog, error) {
	c := &Catalog{entities: make(map[string]*Entity, len(entities))}
	var errs []error
	for _, e := range entities {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("entity with table %q has no name", e.Table))
			continue
		}
		if e.Table == "" {
			errs = append(errs, fmt.Errorf("entity %s: table is required", e.Name))
		}
		if _, dup := c.entities[e.Name]; dup {
			errs = append(errs, fmt.Errorf("entity %s: declared twice", e.Name))
			continue
		}
		c.entities[e.Name] = e
	}
	for _, e := range entities {
		seen := make(map[string]bool)
		for _, j := range e.Joins {
			if seen[j.Relation] {
				errs = append(errs, fmt.Errorf("entity %s: relation %q declared twice", e.Name, j.Relation))
			}
			seen[j.Relation] = true
			if _, ok := c.entities[j.Target]; !ok {
				errs = append(errs, fmt.Errorf("entity %s: relation %q targets unknown entity %q", e.Name, j.Relation, j.Target))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, e := range entities {
		e.catalog = c
	}
	return c, nil
}

// MustCatalog is NewCatalog for static tables; it panics on error.
func MustCatalog(entities ...*Entity) *Catalog {
	c, err := NewCatalog(entities...)
	if err != nil {
		panic(err)
	}
	return c
}

// Entity returns the entity with the given name.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	e, ok := c.entities[name]
	return e, ok
}

// Entities returns all entities sorted by name.
func (c *Catalog) Entities() []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Path resolves a dotted relation path ("material.supplier") starting at
// root. It returns the descriptors hop by hop and the entity at the end.
func (c *Catalog) Path(root *Entity, dotted string) ([]JoinDescriptor, *Entity, error) {
	if dotted == "" {
		return nil, root, nil
	}
	cur := root
	var hops []JoinDescriptor
	for _, rel := range strings.Split(dotted, ".") {
		d, ok := cur.Join(rel)
		if !ok {
			return nil, nil, fmt.Errorf("entity %s has no relation %q (path %q)", cur.Name, rel, dotted)
		}
		next, ok := c.entities[d.Target]
		if !ok {
			return nil, nil, fmt.Errorf("relation %q targets unknown entity %q", rel, d.Target)
		}
		hops = append(hops, d)
		cur = next
	}
	return hops, cur, nil
}
