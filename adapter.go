package construct

import "errors"

// AdapterField wraps a construct with a value mapping: wire
// representation below, domain representation above. Decode runs after
// parse, encode before build. Callbacks get the context; its Path
// locates the field when a mapping wants path-qualified diagnostics.
type AdapterField struct {
	sub    Construct
	decode func(wire any, ctx Ctx) (any, error)
	encode func(value any, ctx Ctx) (any, error)
	pure   bool
}

// Adapt declares a value mapping over sub.
func Adapt(sub Construct, decode, encode func(any, Ctx) (any, error)) *AdapterField {
	return &AdapterField{sub: sub, decode: decode, encode: encode}
}

// Pure marks the mapping as context-free, which permits ahead-of-time
// specialization of the wrapped subtree.
func (a *AdapterField) Pure() *AdapterField {
	a.pure = true
	return a
}

func (a *AdapterField) Parse(r *Reader, ctx Ctx) (any, error) {
	wire, err := a.sub.Parse(r, ctx)
	if err != nil {
		return nil, err
	}
	return a.decode(wire, ctx)
}

func (a *AdapterField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	wire, err := a.encode(v, ctx)
	if err != nil {
		return 0, err
	}
	return a.sub.Build(wire, w, ctx)
}

func (a *AdapterField) Sizeof(ctx Ctx) (int, error) { return a.sub.Sizeof(ctx) }

// ValidateField enforces a predicate on the decoded value, in both
// directions.
type ValidateField struct {
	sub  Construct
	pred func(any, Ctx) bool
}

// Validate declares a predicate check over sub's value.
func Validate(sub Construct, pred func(any, Ctx) bool) *ValidateField {
	return &ValidateField{sub: sub, pred: pred}
}

func (f *ValidateField) Parse(r *Reader, ctx Ctx) (any, error) {
	v, err := f.sub.Parse(r, ctx)
	if err != nil {
		return nil, err
	}
	if !f.pred(v, ctx) {
		return nil, newError(ErrCheck, "parsed value %v rejected", v)
	}
	return v, nil
}

func (f *ValidateField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	if !f.pred(v, ctx) {
		return 0, newError(ErrCheck, "value %v rejected", v)
	}
	return f.sub.Build(v, w, ctx)
}

func (f *ValidateField) Sizeof(ctx Ctx) (int, error) { return f.sub.Sizeof(ctx) }

// TunnelField reinterprets the remainder of the stream through a byte
// transformation: decode unwraps the wire bytes before the inner parse,
// encode wraps the inner build's output before it reaches the stream.
type TunnelField struct {
	sub    Construct
	decode func([]byte) ([]byte, error)
	encode func([]byte) ([]byte, error)
}

// NewTunnel declares a byte transformation around sub.
func NewTunnel(sub Construct, decode, encode func([]byte) ([]byte, error)) *TunnelField {
	return &TunnelField{sub: sub, decode: decode, encode: encode}
}

func (t *TunnelField) Parse(r *Reader, ctx Ctx) (any, error) {
	wire, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	plain, err := t.decode(wire)
	if err != nil {
		return nil, wrapError(ErrStream, err, "decoding tunneled bytes")
	}
	return t.sub.Parse(NewReader(NewBytesReader(plain)), ctx)
}

func (t *TunnelField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	sink := NewBytesWriter()
	if _, err := t.sub.Build(v, NewWriter(sink), ctx); err != nil {
		return 0, err
	}
	wire, err := t.encode(sink.Bytes())
	if err != nil {
		return 0, wrapError(ErrStream, err, "encoding tunneled bytes")
	}
	return w.WriteFull(wire)
}

func (t *TunnelField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "tunneled size depends on the transformation")
}

// PrefixedField length-prefixes its payload. Parse reads the length,
// takes exactly that many bytes and hands them to the payload construct
// as a bounded window; build measures the payload first, then writes
// length and payload.
type PrefixedField struct {
	length Construct
	sub    Construct
}

// Prefixed declares sub behind a length prefix.
func Prefixed(length, sub Construct) *PrefixedField {
	return &PrefixedField{length: length, sub: sub}
}

func (p *PrefixedField) Parse(r *Reader, ctx Ctx) (any, error) {
	lv, err := p.length.Parse(r, ctx)
	if err != nil {
		return nil, err
	}
	n, err := toInt(lv)
	if err != nil {
		return nil, newError(ErrArgument, "length prefix: %v", err)
	}
	window, err := r.ReadFull(n)
	if err != nil {
		return nil, err
	}
	return p.sub.Parse(NewReader(NewBytesReader(window)), ctx)
}

func (p *PrefixedField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	sink := NewBytesWriter()
	if _, err := p.sub.Build(v, NewWriter(sink), ctx); err != nil {
		return 0, err
	}
	n, err := p.length.Build(sink.Len(), w, ctx)
	if err != nil {
		return n, err
	}
	m, err := w.WriteFull(sink.Bytes())
	return n + m, err
}

func (p *PrefixedField) Sizeof(ctx Ctx) (int, error) {
	ln, err := p.length.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	pn, err := p.sub.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	return ln + pn, nil
}

// AlignedField pads its inner construct to a multiple of the modulus,
// measured from where the inner construct started.
type AlignedField struct {
	modulus int
	sub     Construct
}

// Aligned declares sub padded out to a multiple of modulus bytes.
func Aligned(modulus int, sub Construct) *AlignedField {
	return &AlignedField{modulus: modulus, sub: sub}
}

func (a *AlignedField) padAfter(consumed int64) (int, error) {
	if a.modulus <= 0 {
		return 0, newError(ErrArgument, "alignment modulus %d is not positive", a.modulus)
	}
	return int(Roundup(consumed, int64(a.modulus)) - consumed), nil
}

func (a *AlignedField) Parse(r *Reader, ctx Ctx) (any, error) {
	before := r.Count()
	v, err := a.sub.Parse(r, ctx)
	if err != nil {
		return nil, err
	}
	pad, err := a.padAfter(r.Count() - before)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadFull(pad); err != nil {
		return nil, err
	}
	return v, nil
}

func (a *AlignedField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	before := w.Count()
	n, err := a.sub.Build(v, w, ctx)
	if err != nil {
		return n, err
	}
	pad, err := a.padAfter(w.Count() - before)
	if err != nil {
		return n, err
	}
	m, err := w.WriteZeros(pad)
	return n + m, err
}

func (a *AlignedField) Sizeof(ctx Ctx) (int, error) {
	n, err := a.sub.Sizeof(ctx)
	if err != nil {
		return 0, err
	}
	if a.modulus <= 0 {
		return 0, newError(ErrArgument, "alignment modulus %d is not positive", a.modulus)
	}
	return int(Roundup(int64(n), int64(a.modulus))), nil
}

// PeekField parses its inner construct and then puts every consumed
// byte back, so the next field sees the stream untouched. A truncated
// stream peeks as nil rather than failing.
type PeekField struct {
	sub Construct
}

// Peek declares a non-consuming look at sub.
func Peek(sub Construct) *PeekField { return &PeekField{sub: sub} }

func (p *PeekField) Parse(r *Reader, ctx Ctx) (any, error) {
	r.Mark()
	v, err := p.sub.Parse(r, ctx)
	r.Rollback()
	if err != nil {
		if errors.Is(err, ErrStream) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (p *PeekField) Build(v any, w *Writer, ctx Ctx) (int, error) { return 0, nil }

func (p *PeekField) Sizeof(ctx Ctx) (int, error) { return 0, nil }

func (p *PeekField) derivedValue() {}

// RawCopyField captures both the decoded value and the exact bytes it
// came from. The result is a Container with data, value, offset1,
// offset2 and length entries; build prefers the raw data when present
// and rebuilds from value otherwise.
type RawCopyField struct {
	sub Construct
}

// RawCopy declares a construct whose raw byte span is retained.
func RawCopy(sub Construct) *RawCopyField { return &RawCopyField{sub: sub} }

func (rc *RawCopyField) Parse(r *Reader, ctx Ctx) (any, error) {
	offset1 := r.Count()
	r.Mark()
	v, err := rc.sub.Parse(r, ctx)
	raw := r.Commit()
	if err != nil {
		return nil, err
	}
	return NewContainer().
		Set("data", raw).
		Set("value", v).
		Set("offset1", offset1).
		Set("offset2", r.Count()).
		Set("length", len(raw)), nil
}

func (rc *RawCopyField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	c, ok := v.(*Container)
	if !ok {
		return 0, newError(ErrRawCopy, "raw copy builds from a Container, got %T", v)
	}
	if data, ok := c.Get("data"); ok {
		b, ok := data.([]byte)
		if !ok {
			return 0, newError(ErrRawCopy, "data entry is %T, needs []byte", data)
		}
		return w.WriteFull(b)
	}
	if inner, ok := c.Get("value"); ok {
		return rc.sub.Build(inner, w, ctx)
	}
	return 0, newError(ErrRawCopy, "container has neither data nor value entry")
}

func (rc *RawCopyField) Sizeof(ctx Ctx) (int, error) { return rc.sub.Sizeof(ctx) }
