package construct

import (
	"io"
)

// Reader is the byte-source capability handed to every Parse call. It
// wraps an arbitrary io.Reader and keeps its own byte accounting, so no
// construct ever needs seek or tell on the underlying stream. Rollback
// of speculative parses (greedy repeat, Peek) is provided by a
// mark/transcript mechanism: bytes consumed under a mark are recorded
// and can be pushed back, which works on pipes and sockets just as well
// as on files.
type Reader struct {
	r        io.Reader
	count    int64
	pushback []byte   // bytes returned by a rolled-back attempt, served first
	marks    [][]byte // active transcripts, innermost last
}

// NewReader wraps r. A nil reader yields a Reader that fails every read
// with a StreamError rather than panicking deep inside a schema.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Count returns the total number of bytes served so far. Rolled-back
// bytes are not counted; this is the engine's byte-offset source.
func (r *Reader) Count() int64 { return r.count }

// serve fills p from the pushback buffer first, then the underlying
// stream. It returns the number of bytes obtained.
func (r *Reader) serve(p []byte) (int, error) {
	n := 0
	if len(r.pushback) > 0 {
		n = copy(p, r.pushback)
		r.pushback = r.pushback[n:]
		if n == len(p) {
			return n, nil
		}
	}
	if r.r == nil {
		return n, io.EOF
	}
	read, err := io.ReadFull(r.r, p[n:])
	return n + read, err
}

// ReadFull returns exactly n bytes, or a StreamError if the stream is
// exhausted first. A short read never consumes partial state invisibly:
// whatever was obtained is recorded in the active transcript, so a
// surrounding mark can roll it back.
func (r *Reader) ReadFull(n int) ([]byte, error) {
	if n < 0 {
		return nil, newError(ErrArgument, "read length %d is negative", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	got, _ := r.serve(buf)
	r.count += int64(got)
	r.record(buf[:got])
	if got < n {
		return nil, newError(ErrStream, "expected %d bytes, stream supplied %d", n, got)
	}
	return buf, nil
}

// ReadByte returns the next byte or a StreamError.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.ReadFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadAll drains the stream to EOF. Rolled-back bytes had their count
// rewound, so everything returned here advances the count.
func (r *Reader) ReadAll() ([]byte, error) {
	var out []byte
	out = append(out, r.pushback...)
	r.pushback = nil
	if r.r != nil {
		rest, err := io.ReadAll(r.r)
		if err != nil {
			return nil, newError(ErrStream, "reading to end of stream: %v", err)
		}
		out = append(out, rest...)
	}
	r.count += int64(len(out))
	r.record(out)
	return out, nil
}

// Exhausted reports whether another byte can be served, consuming
// nothing. It is how greedy repeat distinguishes clean end-of-stream
// from a mid-element truncation.
func (r *Reader) Exhausted() bool {
	if len(r.pushback) > 0 {
		return false
	}
	if r.r == nil {
		return true
	}
	var one [1]byte
	n, _ := r.r.Read(one[:])
	if n == 0 {
		return true
	}
	r.pushback = append(r.pushback, one[0])
	return false
}

// Mark opens a transcript: every byte served until the matching
// Rollback or Commit is recorded.
func (r *Reader) Mark() {
	r.marks = append(r.marks, nil)
}

// Rollback closes the innermost transcript and pushes its bytes back,
// rewinding Count, as if the marked span was never read.
func (r *Reader) Rollback() {
	last := len(r.marks) - 1
	recorded := r.marks[last]
	r.marks = r.marks[:last]
	if len(recorded) == 0 {
		return
	}
	r.count -= int64(len(recorded))
	r.pushback = append(append([]byte{}, recorded...), r.pushback...)
}

// Commit closes the innermost transcript, keeping its bytes consumed.
// It returns the recorded span, which RawCopy uses for its raw window.
func (r *Reader) Commit() []byte {
	last := len(r.marks) - 1
	recorded := r.marks[last]
	r.marks = r.marks[:last]
	if outer := len(r.marks) - 1; outer >= 0 {
		r.marks[outer] = append(r.marks[outer], recorded...)
	}
	return recorded
}

func (r *Reader) record(p []byte) {
	if len(r.marks) == 0 || len(p) == 0 {
		return
	}
	last := len(r.marks) - 1
	r.marks[last] = append(r.marks[last], p...)
}

// BytesReader is an io.Reader over a byte slice, used as the in-memory
// stream behind ParseBytes and adapter windows.
type BytesReader struct {
	B []byte
	N int
}

// NewBytesReader creates a BytesReader over b.
func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{B: b}
}

// Read implements the [io.Reader] interface.
func (r *BytesReader) Read(p []byte) (int, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	n := copy(p, r.B[r.N:])
	r.N += n
	return n, nil
}

// Available returns the number of unread bytes.
func (r *BytesReader) Available() int {
	if n := len(r.B) - r.N; n > 0 {
		return n
	}
	return 0
}
