// Package request decodes JSON or YAML request documents into plans.
//
// A document names an entity from a schema.Catalog and an operation:
//
//	entity: Item
//	operation: read          # read (default), insert, update, delete
//	mode: total              # all (default), columns, total, exists
//	joins: [material, material.supplier]
//	filter:
//	  and:
//	    - name: {like: "%bolt%"}
//	    - or:
//	        - price: {gt: 10}
//	        - material.supplier.country: {eq: DE}
//	search: "steel bolt"
//	having:
//	  qty: {sum: {gte: 20}}
//	sort:
//	  - price: desc
//	page: {pageSize: 50, pageNo: 2}
//	includeDeleted: false
//
// Insert and update documents carry "values"; update and delete documents
// may carry "returning". A delete on a soft-delete entity stamps the marker
// unless "purge: true" is set.
//
// Values are converted using the field's kind and Go type hint: uuid.UUID
// columns parse UUIDs, temporal columns parse RFC 3339 timestamps or dates,
// integer columns decode to int64 and other numeric columns to float64.
//
// Decoding resolves names against the catalog; everything else (operator
// support, arity, declared joins) is left to the plan builders, so their
// PlanError codes surface unchanged.
package request
