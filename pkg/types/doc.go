// Package types defines the entities of a measurement record (sampling grids,
// data channels, process parameters), the two storage representations a
// payload can take on disk, and the standard error types shared by the
// schema, codec and record packages.
//
// The package has no dependencies on the rest of the module so that every
// other package can import it.
package types
