// Package codegen renders a schema.Catalog as Go source: one schema table
// per entity plus typed field handles, so call sites can write
// models.ItemName.Eq("bolt") instead of spelling column names.
package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/roach88/sqlplan/internal/schema"
)

const (
	schemaPkg  = "github.com/roach88/sqlplan/internal/schema"
	queryirPkg = "github.com/roach88/sqlplan/internal/queryir"
)

// Header is written at the top of every generated file.
const Header = "Code generated by sqlplan gen. DO NOT EDIT."

// qualifiedTypes maps the type hints a schema may carry to import paths.
var qualifiedTypes = map[string]string{
	"uuid": "github.com/google/uuid",
	"time": "time",
}

var kindIdents = map[schema.Kind]string{
	schema.KindText:     "KindText",
	schema.KindBoolean:  "KindBoolean",
	schema.KindNumeric:  "KindNumeric",
	schema.KindOpaque:   "KindOpaque",
	schema.KindTemporal: "KindTemporal",
}

// Generate builds the file for cat in package pkg. Entities are emitted in
// name order so output is stable.
func Generate(cat *schema.Catalog, pkg string) (*jen.File, error) {
	if pkg == "" {
		return nil, fmt.Errorf("package name is required")
	}
	f := jen.NewFile(pkg)
	f.HeaderComment(Header)

	entities := cat.Entities()
	for _, e := range entities {
		if err := genEntity(f, e); err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
	}

	// Built once so the entity vars are bound to a single catalog.
	f.Var().Id("catalog").Op("=").Qual(schemaPkg, "MustCatalog").CallFunc(func(g *jen.Group) {
		for _, e := range entities {
			g.Id(entityVar(e))
		}
	})
	f.Comment("Catalog returns every generated entity as a catalog.")
	f.Func().Id("Catalog").Params().Op("*").Qual(schemaPkg, "Catalog").Block(
		jen.Return(jen.Id("catalog")),
	)
	return f, nil
}

// Render generates and writes gofmt'ed source to w.
func Render(w io.Writer, cat *schema.Catalog, pkg string) error {
	f, err := Generate(cat, pkg)
	if err != nil {
		return err
	}
	return f.Render(w)
}

func genEntity(f *jen.File, e *schema.Entity) error {
	for _, j := range e.Joins {
		f.Commentf("%s is the %q relation of %s.", joinVar(e, j), j.Relation, e.Name)
		f.Var().Id(joinVar(e, j)).Op("=").Qual(schemaPkg, "JoinDescriptor").Values(joinDict(j))
	}

	f.Commentf("%s is the schema table of %s.", entityVar(e), e.Table)
	f.Var().Id(entityVar(e)).Op("=").Op("&").Qual(schemaPkg, "Entity").Values(entityDict(e))

	var handles []jen.Code
	for _, field := range e.Fields {
		h, err := handle(field)
		if err != nil {
			return err
		}
		handles = append(handles, jen.Id(e.Name+goName(field.Name)).Op("=").Add(h))
	}
	f.Commentf("Field handles of %s.", e.Name)
	f.Var().Defs(handles...)
	return nil
}

func entityDict(e *schema.Entity) jen.Dict {
	d := jen.Dict{
		jen.Id("Name"):  jen.Lit(e.Name),
		jen.Id("Table"): jen.Lit(e.Table),
		jen.Id("Fields"): jen.Index().Qual(schemaPkg, "Field").ValuesFunc(func(g *jen.Group) {
			for _, field := range e.Fields {
				g.Values(fieldDict(field))
			}
		}),
	}
	if e.PrimaryKey != "" {
		d[jen.Id("PrimaryKey")] = jen.Lit(e.PrimaryKey)
	}
	if len(e.Joins) > 0 {
		d[jen.Id("Joins")] = jen.Index().Qual(schemaPkg, "JoinDescriptor").ValuesFunc(func(g *jen.Group) {
			for _, j := range e.Joins {
				g.Id(joinVar(e, j))
			}
		})
	}
	if e.Deletion.Soft() {
		d[jen.Id("Deletion")] = jen.Qual(schemaPkg, "SoftDelete").Call(jen.Lit(e.Deletion.Marker()))
	}
	if p := policy(e.Create); p != nil {
		d[jen.Id("Create")] = p
	}
	if p := policy(e.Update); p != nil {
		d[jen.Id("Update")] = p
	}
	if e.Search != nil {
		d[jen.Id("Search")] = jen.Op("&").Qual(schemaPkg, "SearchConfig").Values(jen.Dict{
			jen.Id("Language"): jen.Lit(e.Search.Language),
			jen.Id("Columns"): jen.Index().Qual(schemaPkg, "WeightedColumn").ValuesFunc(func(g *jen.Group) {
				for _, c := range e.Search.Columns {
					cd := jen.Dict{
						jen.Id("Column"): jen.Lit(c.Column),
						jen.Id("Weight"): jen.Lit(c.Weight),
					}
					if c.Path != "" {
						cd[jen.Id("Path")] = jen.Lit(c.Path)
					}
					g.Values(cd)
				}
			}),
		})
	}
	return d
}

func fieldDict(field schema.Field) jen.Dict {
	d := jen.Dict{
		jen.Id("Name"): jen.Lit(field.Name),
		jen.Id("Kind"): jen.Qual(schemaPkg, kindIdents[field.Kind]),
	}
	if field.Column != "" {
		d[jen.Id("Column")] = jen.Lit(field.Column)
	}
	if field.Type != "" {
		d[jen.Id("Type")] = jen.Lit(field.Type)
	}
	return d
}

func joinDict(j schema.JoinDescriptor) jen.Dict {
	kind := "InnerJoin"
	if j.Kind == schema.LeftJoin {
		kind = "LeftJoin"
	}
	return jen.Dict{
		jen.Id("Relation"): jen.Lit(j.Relation),
		jen.Id("Kind"):     jen.Qual(schemaPkg, kind),
		jen.Id("Table"):    jen.Lit(j.Table),
		jen.Id("Target"):   jen.Lit(j.Target),
		jen.Id("On"):       jen.Lit(j.On),
	}
}

func policy(p schema.WritePolicy) jen.Code {
	if p.Marker == "" && len(p.Excluded) == 0 {
		return nil
	}
	d := jen.Dict{}
	if p.Marker != "" {
		d[jen.Id("Marker")] = jen.Lit(p.Marker)
	}
	if len(p.Excluded) > 0 {
		d[jen.Id("Excluded")] = jen.Index().String().ValuesFunc(func(g *jen.Group) {
			for _, c := range p.Excluded {
				g.Lit(c)
			}
		})
	}
	return jen.Qual(schemaPkg, "WritePolicy").Values(d)
}

// handle returns the queryir constructor call for a field.
func handle(field schema.Field) (jen.Code, error) {
	switch field.Kind {
	case schema.KindText:
		return jen.Qual(queryirPkg, "Text").Call(jen.Lit(field.Name)), nil
	case schema.KindBoolean:
		return jen.Qual(queryirPkg, "Bool").Call(jen.Lit(field.Name)), nil
	case schema.KindTemporal:
		return jen.Qual(queryirPkg, "Temporal").Call(jen.Lit(field.Name)), nil
	case schema.KindNumeric:
		t, err := goType(field.Type, "float64")
		if err != nil {
			return nil, err
		}
		return jen.Qual(queryirPkg, "Numeric").Types(t).Call(jen.Lit(field.Name)), nil
	case schema.KindOpaque:
		t, err := goType(field.Type, "string")
		if err != nil {
			return nil, err
		}
		return jen.Qual(queryirPkg, "Opaque").Types(t).Call(jen.Lit(field.Name)), nil
	}
	return nil, fmt.Errorf("field %s: unsupported kind %s", field.Name, field.Kind)
}

// goType turns a type hint such as "int64" or "uuid.UUID" into code.
func goType(hint, fallback string) (jen.Code, error) {
	if hint == "" {
		hint = fallback
	}
	pkg, name, ok := strings.Cut(hint, ".")
	if !ok {
		return jen.Id(hint), nil
	}
	path, known := qualifiedTypes[pkg]
	if !known {
		return nil, fmt.Errorf("unknown package %q in type %q", pkg, hint)
	}
	return jen.Qual(path, name), nil
}

func entityVar(e *schema.Entity) string { return e.Name + "Entity" }

func joinVar(e *schema.Entity, j schema.JoinDescriptor) string {
	return e.Name + "Join" + goName(j.Relation)
}

// goName camelizes a column or relation name, upper-casing a trailing
// "Id" the way Go spells initialisms.
func goName(s string) string {
	name := inflect.Camelize(s)
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}
