package models

// SampleFormat enumerates the on-disk sample encodings a block can carry.
// The numeric values are part of the wire format and must not be reordered.
type SampleFormat uint32

const (
	SampleFormatInt16 SampleFormat = iota
	SampleFormatInt24
	SampleFormatFloat32
)

// MinMaxRMS is one summary cell of a sample block: the minimum, maximum and
// root-mean-square of the samples it covers.
type MinMaxRMS struct {
	Min float32
	Max float32
	RMS float32
}

// DecodedBlock is the result of decompressing a downloaded block payload.
// Summary256 aggregates every 256 samples, Summary64k every 65536. Samples
// holds the raw sample bytes in the format declared by Format.
type DecodedBlock struct {
	BlockID    int64
	Format     SampleFormat
	Block      MinMaxRMS
	Summary256 []MinMaxRMS
	Summary64k []MinMaxRMS
	Samples    []byte
}
