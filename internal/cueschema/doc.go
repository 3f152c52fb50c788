// Package cueschema loads entity definitions written in CUE into a
// schema.Catalog.
//
// An entity is a struct under the top-level "entity" field:
//
//	entity: Item: {
//		table: "item" // optional, defaults to the underscored name
//		fields: {
//			id:    {kind: "opaque", type: "uuid.UUID"}
//			name:  "text" // shorthand for {kind: "text"}
//			price: "numeric"
//		}
//		joins: material: {kind: "inner", on: "{left}.material_id = {right}.id"}
//		softDelete: "deleted_at"
//		create: marker: "created_at"
//		update: {marker: "updated_at", exclude: ["id"]}
//		search: {
//			language: "english"
//			columns: [{column: "name", weight: "A"}]
//		}
//	}
//
// Field order in the CUE source is the declaration order of the entity.
// A join's target defaults to the camelized relation name and its table to
// the target entity's table.
//
// Errors carry the CUE source position when one is available.
package cueschema
