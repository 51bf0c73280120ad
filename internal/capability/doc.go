// Package capability answers "does model/provider X support feature Y" by
// family, model-id, base-URL, and custom-predicate matching. Adapters consult
// the matrix when shaping requests; it is immutable after construction.
package capability
