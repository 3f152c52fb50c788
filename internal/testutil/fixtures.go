package testutil

import "github.com/roach88/sqlplan/internal/schema"

// Join descriptors of the fixture catalog, exported so tests can build
// paths without a catalog lookup.
var (
	ItemMaterial = schema.JoinDescriptor{
		Relation: "material",
		Kind:     schema.InnerJoin,
		Table:    "material",
		Target:   "Material",
		On:       "{left}.material_id = {right}.id",
	}
	MaterialSupplier = schema.JoinDescriptor{
		Relation: "supplier",
		Kind:     schema.LeftJoin,
		Table:    "supplier",
		Target:   "Supplier",
		On:       "{left}.supplier_id = {right}.id",
	}
	SupplierMaterials = schema.JoinDescriptor{
		Relation: "materials",
		Kind:     schema.LeftJoin,
		Table:    "material",
		Target:   "Material",
		On:       "{right}.supplier_id = {left}.id",
	}
)

// item is a hard-delete entity with create/update markers, a join to
// Material and full-text search over its own and joined names.
func item() *schema.Entity {
	return &schema.Entity{
		Name:  "Item",
		Table: "item",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
			{Name: "name", Kind: schema.KindText, Type: "string"},
			{Name: "price", Kind: schema.KindNumeric, Type: "float64"},
			{Name: "qty", Kind: schema.KindNumeric, Type: "int64"},
			{Name: "active", Kind: schema.KindBoolean, Type: "bool"},
			{Name: "material_id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
			{Name: "created_at", Kind: schema.KindTemporal, Type: "time.Time"},
			{Name: "updated_at", Kind: schema.KindTemporal, Type: "time.Time"},
		},
		Joins:    []schema.JoinDescriptor{ItemMaterial},
		Deletion: schema.HardDelete,
		Create:   schema.WritePolicy{Marker: "created_at"},
		Update:   schema.WritePolicy{Marker: "updated_at", Excluded: []string{"id", "created_at"}},
		Search: &schema.SearchConfig{
			Language: "english",
			Columns: []schema.WeightedColumn{
				{Column: "name", Weight: "A"},
				{Path: "material", Column: "name", Weight: "B"},
			},
		},
	}
}

// softItem is a soft-delete entity marked by deleted_at.
func softItem() *schema.Entity {
	return &schema.Entity{
		Name:  "SoftItem",
		Table: "soft_item",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
			{Name: "name", Kind: schema.KindText, Type: "string"},
			{Name: "deleted_at", Kind: schema.KindTemporal, Type: "time.Time"},
		},
		Deletion: schema.SoftDelete("deleted_at"),
	}
}

// material joins on to Supplier with a LEFT JOIN.
func material() *schema.Entity {
	return &schema.Entity{
		Name:  "Material",
		Table: "material",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
			{Name: "name", Kind: schema.KindText, Type: "string"},
			{Name: "supplier_id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
		},
		Joins: []schema.JoinDescriptor{MaterialSupplier},
	}
}

// supplier is soft deletable and has a one-to-many join to its materials,
// which makes it the fixture for aggregate filters.
func supplier() *schema.Entity {
	return &schema.Entity{
		Name:  "Supplier",
		Table: "supplier",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindOpaque, Type: "uuid.UUID"},
			{Name: "name", Kind: schema.KindText, Type: "string"},
			{Name: "country", Kind: schema.KindText, Type: "string"},
			{Name: "deleted_at", Kind: schema.KindTemporal, Type: "time.Time"},
		},
		Joins:    []schema.JoinDescriptor{SupplierMaterials},
		Deletion: schema.SoftDelete("deleted_at"),
	}
}

// Catalog returns a fresh catalog of all fixture entities.
func Catalog() *schema.Catalog {
	return schema.MustCatalog(item(), softItem(), material(), supplier())
}

// Item, SoftItem, Material and Supplier return one entity of a fresh
// Catalog, so joined references can be checked against their targets.
func Item() *schema.Entity     { return entity("Item") }
func SoftItem() *schema.Entity { return entity("SoftItem") }
func Material() *schema.Entity { return entity("Material") }
func Supplier() *schema.Entity { return entity("Supplier") }

func entity(name string) *schema.Entity {
	e, ok := Catalog().Entity(name)
	if !ok {
		panic("testutil: no fixture entity " + name)
	}
	return e
}
