// Package core is a schema-driven administration engine: it turns any
// relational schema into a generic CRUD surface.
//
// # Components
//
//   - SchemaCatalog discovers tables and ordered columns from the live schema.
//   - RowStore (implemented in internal/store) reads and writes rows.
//   - Resolver renders foreign key values as "key: label" and parses them back.
//   - Registry and Dispatcher map (table, column) to a Rule and apply it.
//   - Service orchestrates List, Add, Edit, Delete, Form and Report.
//
// # Rules
//
// Column behavior comes only from the Registry. A column without a rule
// passes through unchanged. Rules are a closed set of variants:
//
//	PassThrough  value unchanged
//	Required     non-blank text
//	Email        local@domain with domain from an allow-list
//	Hash         sha256 (default) or bcrypt digest
//	Phone        exact digit count, formatted as +d-ddd-ddd-dd-dd style groups
//	Numeric      decimal number
//	Integer      whole number
//	ForeignKey   "key: label" selection parsed to the key
//	Date         structured date in a fixed layout
//
// Named rule sets are registered with RegisterPreset (see internal/core/tables)
// and can be overridden from a YAML rule file (Registry.Merge).
//
// # Row addressing
//
// Edit and Delete address rows by primary key by default. AddressByRow
// matches every column of the previously displayed row instead; all fully
// equal rows are affected and changes made by others since the row was
// displayed cause ErrNoMatch. Hash columns are re-hashed on every Edit unless
// the rule sets PreserveUnchanged.
//
// # Errors
//
// Rule rejections are *ValidationError values joined per row. Store failures
// are *StorageError and IsRetryable reports true for them. MapError turns
// any error into a coded UserMessage.
package core
