package cueschema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"github.com/go-openapi/inflect"

	"github.com/roach88/sqlplan/internal/schema"
)

// CompileEntity parses one entity struct into a schema.Entity. The entity
// name is the last label of the value's path.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Item: { fields: { id: "opaque" } }`)
//	e, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Item")))
//
// Join tables that were left out are filled in later by Compile, once every
// entity is known.
func CompileEntity(v cue.Value) (*schema.Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	e := &schema.Entity{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		e.Name = labels[len(labels)-1].String()
	}
	if e.Name == "" {
		return nil, &CompileError{Field: "entity", Message: "entity name is required", Pos: v.Pos()}
	}

	var err error
	if e.Table, err = optString(v, "table"); err != nil {
		return nil, err
	}
	if e.Table == "" {
		e.Table = inflect.Underscore(e.Name)
	}
	if e.PrimaryKey, err = optString(v, "primaryKey"); err != nil {
		return nil, err
	}

	if e.Fields, err = parseFields(v); err != nil {
		return nil, err
	}
	if len(e.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: fmt.Sprintf("entity %s declares no fields", e.Name),
			Pos:     v.Pos(),
		}
	}

	if e.Joins, err = parseJoins(v); err != nil {
		return nil, err
	}

	marker, err := optString(v, "softDelete")
	if err != nil {
		return nil, err
	}
	if marker != "" {
		e.Deletion = schema.SoftDelete(marker)
	}

	if e.Create, err = parsePolicy(v, "create"); err != nil {
		return nil, err
	}
	if e.Update, err = parsePolicy(v, "update"); err != nil {
		return nil, err
	}

	if e.Search, err = parseSearch(v); err != nil {
		return nil, err
	}
	return e, nil
}

// parseFields reads the fields struct in declaration order. A field is
// either a kind string or a struct {kind, column?, type?}.
func parseFields(v cue.Value) ([]schema.Field, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		name := iter.Label()
		fv := iter.Value()
		f := schema.Field{Name: name}

		kindText, err := fv.String()
		if err != nil {
			// Struct form.
			if kindText, err = optString(fv, "kind"); err != nil {
				return nil, err
			}
			if f.Column, err = optString(fv, "column"); err != nil {
				return nil, err
			}
			if f.Type, err = optString(fv, "type"); err != nil {
				return nil, err
			}
		}
		if kindText == "" {
			return nil, &CompileError{
				Field:   "fields." + name,
				Message: "kind is required",
				Pos:     fv.Pos(),
			}
		}
		if f.Kind, err = schema.ParseKind(kindText); err != nil {
			return nil, &CompileError{Field: "fields." + name, Message: err.Error(), Pos: fv.Pos()}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseJoins(v cue.Value) ([]schema.JoinDescriptor, error) {
	joinsVal := v.LookupPath(cue.ParsePath("joins"))
	if !joinsVal.Exists() {
		return nil, nil
	}
	iter, err := joinsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var joins []schema.JoinDescriptor
	for iter.Next() {
		rel := iter.Label()
		jv := iter.Value()
		d := schema.JoinDescriptor{Relation: rel}

		kind, err := optString(jv, "kind")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(kind) {
		case "", "inner":
			d.Kind = schema.InnerJoin
		case "left":
			d.Kind = schema.LeftJoin
		default:
			return nil, &CompileError{
				Field:   "joins." + rel + ".kind",
				Message: fmt.Sprintf("join kind must be \"inner\" or \"left\", got %q", kind),
				Pos:     jv.Pos(),
			}
		}

		if d.Target, err = optString(jv, "target"); err != nil {
			return nil, err
		}
		if d.Target == "" {
			d.Target = inflect.Camelize(rel)
		}
		if d.Table, err = optString(jv, "table"); err != nil {
			return nil, err
		}
		if d.On, err = optString(jv, "on"); err != nil {
			return nil, err
		}
		if d.On == "" {
			return nil, &CompileError{
				Field:   "joins." + rel + ".on",
				Message: "join condition is required",
				Pos:     jv.Pos(),
			}
		}
		joins = append(joins, d)
	}
	return joins, nil
}

func parsePolicy(v cue.Value, name string) (schema.WritePolicy, error) {
	var p schema.WritePolicy
	pv := v.LookupPath(cue.ParsePath(name))
	if !pv.Exists() {
		return p, nil
	}
	var err error
	if p.Marker, err = optString(pv, "marker"); err != nil {
		return p, err
	}
	if p.Excluded, err = optStrings(pv, "exclude"); err != nil {
		return p, err
	}
	return p, nil
}

func parseSearch(v cue.Value) (*schema.SearchConfig, error) {
	sv := v.LookupPath(cue.ParsePath("search"))
	if !sv.Exists() {
		return nil, nil
	}
	lang, err := optString(sv, "language")
	if err != nil {
		return nil, err
	}
	cfg := &schema.SearchConfig{Language: lang}

	colsVal := sv.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Field: "search.columns", Message: "at least one column is required", Pos: sv.Pos()}
	}
	iter, err := colsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		cv := iter.Value()
		var wc schema.WeightedColumn
		if wc.Path, err = optString(cv, "path"); err != nil {
			return nil, err
		}
		if wc.Column, err = optString(cv, "column"); err != nil {
			return nil, err
		}
		if wc.Weight, err = optString(cv, "weight"); err != nil {
			return nil, err
		}
		if wc.Column == "" {
			return nil, &CompileError{Field: "search.columns", Message: "column is required", Pos: cv.Pos()}
		}
		switch wc.Weight {
		case "":
			wc.Weight = "D"
		case "A", "B", "C", "D":
		default:
			return nil, &CompileError{
				Field:   "search.columns",
				Message: fmt.Sprintf("weight must be one of A, B, C, D, got %q", wc.Weight),
				Pos:     cv.Pos(),
			}
		}
		cfg.Columns = append(cfg.Columns, wc)
	}
	if len(cfg.Columns) == 0 {
		return nil, &CompileError{Field: "search.columns", Message: "at least one column is required", Pos: sv.Pos()}
	}
	return cfg, nil
}

// optString returns the string at path, or "" when it is absent.
func optString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optStrings(v cue.Value, path string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
