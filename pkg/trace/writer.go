package trace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/infrasim/pkg/simulation"
)

// Writer appends frames to a trace. It implements simulation.Observer, so
// it can be handed straight to an engine.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	seq    uint64
	closed bool

	frames            uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// NewWriter writes the preamble and header to w.
func NewWriter(w io.Writer, header Header) (*Writer, error) {
	tw := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}

	if _, err := tw.w.WriteString(magic); err != nil {
		return nil, fmt.Errorf("failed to write trace preamble: %w", err)
	}
	if err := tw.w.WriteByte(version); err != nil {
		return nil, fmt.Errorf("failed to write trace preamble: %w", err)
	}

	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if err := tw.append(RecordHeader, header); err != nil {
		return nil, err
	}
	if err := tw.w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush trace header: %w", err)
	}
	return tw, nil
}

// Create creates (or truncates) the trace file at path.
func Create(path string, header Header) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	tw, err := NewWriter(file, header)
	if err != nil {
		file.Close()
		return nil, err
	}
	return tw, nil
}

// ObserveFrame appends one frame.
func (tw *Writer) ObserveFrame(f simulation.Frame) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrClosed
	}
	if err := tw.append(RecordFrame, f); err != nil {
		return err
	}
	tw.frames++
	return nil
}

// Flush writes buffered records to the underlying writer.
func (tw *Writer) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.w.Flush()
}

// Close flushes and, when the underlying writer is closable, closes it.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true

	if err := tw.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	if tw.closer != nil {
		return tw.closer.Close()
	}
	return nil
}

// Stats returns compression statistics for the frames written so far.
func (tw *Writer) Stats() Stats {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	s := Stats{
		Frames:            tw.frames,
		BytesUncompressed: tw.bytesUncompressed,
		BytesCompressed:   tw.bytesCompressed,
	}
	if s.BytesUncompressed > 0 {
		s.CompressionRatio = float64(s.BytesCompressed) / float64(s.BytesUncompressed)
	}
	return s
}

// append encodes and writes one record. Caller holds tw.mu.
func (tw *Writer) append(kind RecordKind, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode trace %s: %w", kind, err)
	}
	compressed := snappy.Encode(nil, data)

	tw.seq++
	if err := tw.writeRecord(tw.seq, kind, compressed); err != nil {
		tw.seq--
		return fmt.Errorf("failed to write trace %s: %w", kind, err)
	}

	tw.bytesUncompressed += uint64(len(data))
	tw.bytesCompressed += uint64(len(compressed))
	return nil
}

func (tw *Writer) writeRecord(seq uint64, kind RecordKind, data []byte) error {
	if err := binary.Write(tw.w, binary.BigEndian, seq); err != nil {
		return err
	}
	if err := tw.w.WriteByte(byte(kind)); err != nil {
		return err
	}
	if err := binary.Write(tw.w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	if _, err := tw.w.Write(data); err != nil {
		return err
	}
	if err := binary.Write(tw.w, binary.BigEndian, crc32.ChecksumIEEE(data)); err != nil {
		return err
	}
	return binary.Write(tw.w, binary.BigEndian, time.Now().Unix())
}
