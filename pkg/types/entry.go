package types

// SamplingGrid is an independent variable (time, position, ...) that data
// channels are sampled over.
//
// Values returned by the record package are snapshots; changing them does
// not change the record.
type SamplingGrid struct {
	Name    string
	Unit    string
	Storage StorageKind
	Notes   string // Optional; empty means absent.

	// Data holds the samples. It is nil while Pending is true.
	Data []float64

	// Pending is true when the payload is an external file that has not
	// been read yet (lazy loading).
	Pending bool

	// Stored is the representation last written or read for this entry;
	// nil until the record has been written or loaded.
	Stored Representation
}

// DataChannel is a dependent variable sampled over one sampling grid.
type DataChannel struct {
	Name              string
	Unit              string
	SamplingGridIndex int // Zero-based index into the record's sampling grids.
	Storage           StorageKind
	InProcess         bool   // Measured during the process rather than ex situ.
	Notes             string // Optional; empty means absent.

	Data    []float64
	Pending bool
	Stored  Representation
}
