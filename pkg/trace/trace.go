// Package trace records simulation frames to a compact, checksummed file and
// reads them back. A trace written from a seeded run can be replayed later to
// prove the engine still produces the same history.
//
// File layout: a 5 byte preamble (magic "IFST" plus a version byte) followed
// by records of the form
//
//	[Seq:8][Kind:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
//
// where Data is a snappy-compressed JSON document and Checksum is the CRC32
// (IEEE) of the compressed bytes. The first record is always the header.
package trace

import (
	"errors"
	"time"
)

const (
	magic   = "IFST"
	version = 1
)

// RecordKind distinguishes the records of a trace file.
type RecordKind byte

const (
	RecordHeader RecordKind = iota + 1
	RecordFrame
)

func (k RecordKind) String() string {
	switch k {
	case RecordHeader:
		return "header"
	case RecordFrame:
		return "frame"
	default:
		return "unknown"
	}
}

var (
	// ErrBadMagic is returned when a file is not a trace.
	ErrBadMagic = errors.New("trace: not a trace file")
	// ErrVersion is returned for traces written by a newer format.
	ErrVersion = errors.New("trace: unsupported version")
	// ErrChecksum is returned when a record's checksum does not match.
	ErrChecksum = errors.New("trace: checksum mismatch")
	// ErrClosed is returned when writing to a closed Writer.
	ErrClosed = errors.New("trace: writer closed")
	// ErrDiverged is returned by Verify when a replay differs from the trace.
	ErrDiverged = errors.New("trace: replay diverged")
)

// Header describes the run a trace belongs to.
type Header struct {
	RunID     string    `json:"runId"`
	LevelID   string    `json:"levelId"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats holds compression statistics for a writer.
type Stats struct {
	Frames            uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // compressed / uncompressed
}
