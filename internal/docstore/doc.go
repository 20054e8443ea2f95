// Package docstore persists case documents in SQLite and implements the
// claim protocol that gives concurrent workers exclusive, lease-bounded
// ownership of one document per stage. All mutation is expressed as
// conditional, column-scoped updates so concurrent writers never clobber
// each other's unrelated fields.
package docstore
