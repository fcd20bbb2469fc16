// Package types defines the Catalog interface, the Collection entity, the
// backup document, query options, and the standard errors for fumetti.
package types
