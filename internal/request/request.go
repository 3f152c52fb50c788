package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/schema"
)

// Document is the decoded form of a request file.
type Document struct {
	Name           string               `yaml:"name,omitempty"`
	Entity         string               `yaml:"entity"`
	Operation      string               `yaml:"operation,omitempty"`
	Mode           string               `yaml:"mode,omitempty"`
	Select         []string             `yaml:"select,omitempty"`
	Joins          []string             `yaml:"joins,omitempty"`
	Filter         yaml.Node            `yaml:"filter,omitempty"`
	Search         string               `yaml:"search,omitempty"`
	Having         yaml.Node            `yaml:"having,omitempty"`
	Sort           []map[string]string  `yaml:"sort,omitempty"`
	Page           *PageSpec            `yaml:"page,omitempty"`
	IncludeDeleted bool                 `yaml:"includeDeleted,omitempty"`
	Values         map[string]yaml.Node `yaml:"values,omitempty"`
	Returning      *[]string            `yaml:"returning,omitempty"`
	Purge          bool                 `yaml:"purge,omitempty"`
}

// PageSpec is the wire form of queryir.Pagination.
type PageSpec struct {
	PageSize int `yaml:"pageSize"`
	PageNo   int `yaml:"pageNo"`
}

// Operation names.
const (
	OpRead   = "read"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// DecodeError reports a document that cannot be turned into a plan.
type DecodeError struct {
	Field   string
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errorf(field string, n *yaml.Node, format string, args ...any) *DecodeError {
	e := &DecodeError{Field: field, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line = n.Line
	}
	return e
}

// Parse decodes a JSON or YAML document. Unknown top-level keys are
// rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Field: "document", Message: "empty document"}
		}
		return nil, fmt.Errorf("parse request: %w", err)
	}
	if doc.Entity == "" {
		return nil, &DecodeError{Field: "entity", Message: "entity is required"}
	}
	return &doc, nil
}

// ParseFile reads and parses a request file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Decode parses data and builds its plan against cat.
func Decode(data []byte, cat *schema.Catalog) (queryir.Plan, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Plan(cat)
}

// Plan builds the document's plan. Build errors from queryir are returned
// as-is so callers can inspect their codes.
func (d *Document) Plan(cat *schema.Catalog) (queryir.Plan, error) {
	root, ok := cat.Entity(d.Entity)
	if !ok {
		return nil, &DecodeError{Field: "entity", Message: fmt.Sprintf("unknown entity %q", d.Entity)}
	}
	dec := &decoder{cat: cat, root: root}

	switch strings.ToLower(d.Operation) {
	case "", OpRead:
		return d.read(dec)
	case OpInsert:
		return d.insert(dec)
	case OpUpdate:
		return d.update(dec)
	case OpDelete:
		return d.delete(dec)
	}
	return nil, &DecodeError{Field: "operation", Message: fmt.Sprintf("unknown operation %q", d.Operation)}
}

func (d *Document) read(dec *decoder) (queryir.Plan, error) {
	b := queryir.NewRead(dec.root)

	mode := strings.ToLower(d.Mode)
	switch mode {
	case "", "all":
		if len(d.Select) > 0 {
			b.Select(d.Select...)
		}
	case "columns":
		b.Select(d.Select...)
	case "total", "exists":
		if mode == "total" {
			b.WithTotal()
		} else {
			b.Exists()
		}
		// Build rejects a select list next to another head.
		if len(d.Select) > 0 {
			b.Select(d.Select...)
		}
	default:
		return nil, &DecodeError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", d.Mode)}
	}

	for _, dotted := range d.Joins {
		path, _, err := queryir.ResolvePath(dec.cat, dec.root, dotted)
		if err != nil {
			return nil, &DecodeError{Field: "joins", Message: err.Error()}
		}
		b.Join(path)
	}

	filter, err := dec.filter(d)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}

	having, err := dec.expr(&d.Having, "having", true)
	if err != nil {
		return nil, err
	}
	if having != nil {
		b.Having(having)
	}

	terms, err := dec.sort(d.Sort)
	if err != nil {
		return nil, err
	}
	if len(terms) > 0 {
		b.OrderBy(terms...)
	}

	if d.Page != nil {
		b.Page(queryir.Page(d.Page.PageNo, d.Page.PageSize))
	}
	if d.IncludeDeleted {
		b.IncludeDeleted()
	}
	return b.Build()
}

func (d *Document) insert(dec *decoder) (queryir.Plan, error) {
	values, err := dec.values(d.Values)
	if err != nil {
		return nil, err
	}
	b := queryir.NewInsert(dec.root)
	if d.Values != nil {
		b.Values(values)
	}
	if d.Returning != nil {
		b.Returning(*d.Returning...)
	}
	return b.Build()
}

func (d *Document) update(dec *decoder) (queryir.Plan, error) {
	values, err := dec.values(d.Values)
	if err != nil {
		return nil, err
	}
	b := queryir.NewUpdate(dec.root)
	if d.Values != nil {
		b.Set(values)
	}
	filter, err := dec.filter(d)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}
	if d.Returning != nil {
		b.Returning(*d.Returning...)
	}
	return b.Build()
}

func (d *Document) delete(dec *decoder) (queryir.Plan, error) {
	b := queryir.NewDelete(dec.root)
	if d.Purge {
		b.Purge()
	}
	filter, err := dec.filter(d)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}
	if d.Returning != nil {
		b.Returning(*d.Returning...)
	}
	return b.Build()
}
