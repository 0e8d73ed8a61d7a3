package construct

import "io"

// Writer is the byte-sink capability handed to every Build call. Like
// Reader it keeps its own byte accounting; builds report their written
// length through return values, never by querying stream position.
type Writer struct {
	w     io.Writer
	count int64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Count returns the total number of bytes written so far.
func (w *Writer) Count() int64 { return w.count }

// WriteFull writes all of p, or fails with a StreamError on a short or
// failed write.
func (w *Writer) WriteFull(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if w.w == nil {
		return 0, newError(ErrStream, "write to nil stream")
	}
	n, err := w.w.Write(p)
	if n < 0 {
		n = 0
	}
	w.count += int64(n)
	if err != nil {
		return n, newError(ErrStream, "writing %d bytes: %v", len(p), err)
	}
	if n < len(p) {
		return n, newError(ErrStream, "short write: %d of %d bytes", n, len(p))
	}
	return n, nil
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	_, err := w.WriteFull([]byte{b})
	return err
}

// WriteZeros writes n zero bytes, for padding and alignment. Small pads
// reuse a static zero block to avoid allocation.
func (w *Writer) WriteZeros(n int) (int, error) {
	written := 0
	for written < n {
		chunk := n - written
		if chunk > len(zeros) {
			chunk = len(zeros)
		}
		m, err := w.WriteFull(zeros[:chunk])
		written += m
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

var zeros [4096]byte

// BytesWriter is an io.Writer that appends to an in-memory buffer; it is
// the sink behind BuildBytes and adapter windows.
type BytesWriter struct {
	B []byte
}

// NewBytesWriter creates an empty BytesWriter.
func NewBytesWriter() *BytesWriter { return &BytesWriter{} }

// Write implements the [io.Writer] interface.
func (w *BytesWriter) Write(p []byte) (int, error) {
	w.B = append(w.B, p...)
	return len(p), nil
}

// Bytes returns the written data.
func (w *BytesWriter) Bytes() []byte { return w.B }

// Len returns the number of bytes written.
func (w *BytesWriter) Len() int { return len(w.B) }

// Reset allows the underlying byte slice to be reused.
func (w *BytesWriter) Reset() { w.B = w.B[:0] }
