package construct

import "bytes"

// stringValue coerces a build value for text fields. Raw bytes are
// rejected the same way byte-strict fields reject text.
func stringValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return "", newError(ErrString, "field is text, got raw bytes")
	default:
		return "", newError(ErrString, "field requires a string, got %T", v)
	}
}

// PaddedStringField is fixed-width text, right-padded with a pad byte.
// Parse trims the padding; build refuses values that do not fit.
type PaddedStringField struct {
	length int
	pad    byte
}

// PaddedString declares n bytes of zero-padded text.
func PaddedString(n int) *PaddedStringField { return &PaddedStringField{length: n} }

// PaddedStringWith declares n bytes of text padded with pad.
func PaddedStringWith(n int, pad byte) *PaddedStringField {
	return &PaddedStringField{length: n, pad: pad}
}

func (f *PaddedStringField) Parse(r *Reader, ctx Ctx) (any, error) {
	buf, err := r.ReadFull(f.length)
	if err != nil {
		return nil, err
	}
	// Trim byte-wise; a cutset would reinterpret pad bytes >= 0x80 as
	// multi-byte runes and leave them in place.
	end := len(buf)
	for end > 0 && buf[end-1] == f.pad {
		end--
	}
	return string(buf[:end]), nil
}

func (f *PaddedStringField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	s, err := stringValue(v)
	if err != nil {
		return 0, err
	}
	if len(s) > f.length {
		return 0, newError(ErrString, "value is %d bytes, field holds %d", len(s), f.length)
	}
	buf := make([]byte, f.length)
	copy(buf, s)
	if f.pad != 0 {
		for i := len(s); i < f.length; i++ {
			buf[i] = f.pad
		}
	}
	return w.WriteFull(buf)
}

func (f *PaddedStringField) Sizeof(ctx Ctx) (int, error) { return f.length, nil }

func (f *PaddedStringField) codecName() string { return "paddedstring" }

// CStringField is text terminated by a sentinel byte, NUL by default.
type CStringField struct {
	term byte
}

// CString declares NUL-terminated text.
func CString() *CStringField { return &CStringField{} }

// CStringWith declares text terminated by term.
func CStringWith(term byte) *CStringField { return &CStringField{term: term} }

func (f *CStringField) Parse(r *Reader, ctx Ctx) (any, error) {
	var out []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, wrapError(ErrString, err, "missing terminator 0x%02x", f.term)
		}
		if b == f.term {
			return string(out), nil
		}
		out = append(out, b)
	}
}

func (f *CStringField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	s, err := stringValue(v)
	if err != nil {
		return 0, err
	}
	if bytes.IndexByte([]byte(s), f.term) >= 0 {
		return 0, newError(ErrString, "value contains the terminator 0x%02x", f.term)
	}
	n, err := w.WriteFull([]byte(s))
	if err != nil {
		return n, err
	}
	if err := w.WriteByte(f.term); err != nil {
		return n, err
	}
	return n + 1, nil
}

func (f *CStringField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "terminated string size depends on its value")
}

func (f *CStringField) codecName() string { return "cstring" }

// GreedyStringField is text over the rest of the stream.
type GreedyStringField struct{}

// GreedyString declares text spanning all remaining bytes.
func GreedyString() *GreedyStringField { return &GreedyStringField{} }

func (f *GreedyStringField) Parse(r *Reader, ctx Ctx) (any, error) {
	b, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *GreedyStringField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	s, err := stringValue(v)
	if err != nil {
		return 0, err
	}
	return w.WriteFull([]byte(s))
}

func (f *GreedyStringField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "greedy field has no static size")
}

func (f *GreedyStringField) codecName() string { return "greedystring" }
