package trace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/dd0wney/infrasim/pkg/simulation"
)

// Reader reads a trace written by Writer.
type Reader struct {
	r      *bufio.Reader
	header Header
	seq    uint64
}

// NewReader checks the preamble and reads the header record.
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{r: bufio.NewReader(r)}

	preamble := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(tr.r, preamble); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if string(preamble[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	if preamble[len(magic)] > version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, preamble[len(magic)])
	}

	kind, data, err := tr.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("trace has no header: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	if kind != RecordHeader {
		return nil, fmt.Errorf("expected header record, found %s", kind)
	}
	if err := json.Unmarshal(data, &tr.header); err != nil {
		return nil, fmt.Errorf("failed to decode trace header: %w", err)
	}
	return tr, nil
}

// Header returns the run description stored in the trace.
func (tr *Reader) Header() Header {
	return tr.header
}

// Next returns the next frame, or io.EOF after the last one.
func (tr *Reader) Next() (simulation.Frame, error) {
	var f simulation.Frame

	kind, data, err := tr.next()
	if err != nil {
		return f, err
	}
	if kind != RecordFrame {
		return f, fmt.Errorf("record %d: expected frame, found %s", tr.seq, kind)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("record %d: failed to decode frame: %w", tr.seq, err)
	}
	return f, nil
}

// next reads one record and returns its decompressed payload. A clean end of
// file between records is io.EOF; a partial record is io.ErrUnexpectedEOF.
func (tr *Reader) next() (RecordKind, []byte, error) {
	var seq uint64
	if err := binary.Read(tr.r, binary.BigEndian, &seq); err != nil {
		return 0, nil, err
	}

	kindByte, err := tr.r.ReadByte()
	if err != nil {
		return 0, nil, unexpected(err)
	}

	var dataLen uint32
	if err := binary.Read(tr.r, binary.BigEndian, &dataLen); err != nil {
		return 0, nil, unexpected(err)
	}

	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(tr.r, compressed); err != nil {
		return 0, nil, unexpected(err)
	}

	var checksum uint32
	if err := binary.Read(tr.r, binary.BigEndian, &checksum); err != nil {
		return 0, nil, unexpected(err)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return 0, nil, fmt.Errorf("%w in record %d", ErrChecksum, seq)
	}

	var timestamp int64
	if err := binary.Read(tr.r, binary.BigEndian, &timestamp); err != nil {
		return 0, nil, unexpected(err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decompress record %d: %w", seq, err)
	}

	tr.seq = seq
	return RecordKind(kindByte), data, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadAll reads every frame from r.
func ReadAll(r io.Reader) (Header, []simulation.Frame, error) {
	tr, err := NewReader(r)
	if err != nil {
		return Header{}, nil, err
	}

	var frames []simulation.Frame
	for {
		f, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return tr.Header(), frames, nil
		}
		if err != nil {
			return tr.Header(), frames, err
		}
		frames = append(frames, f)
	}
}

// ReadFile reads every frame from the trace file at path.
func ReadFile(path string) (Header, []simulation.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()
	return ReadAll(file)
}
