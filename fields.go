package construct

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var (
	// BE and LE are the two byte orders leaf fields are declared with.
	BE = binary.BigEndian
	LE = binary.LittleEndian
)

// valueBytes coerces a build value to raw bytes for byte-strict fields.
// Decoded text is rejected: a field declared over raw bytes must be
// given raw bytes.
func valueBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return nil, newError(ErrString, "field is byte-strict, got decoded text %q", b)
	case nil:
		return nil, newError(ErrFormatField, "field requires bytes, got nil")
	default:
		return nil, newError(ErrFormatField, "field requires bytes, got %T", v)
	}
}

// BytesField is a fixed-width raw byte field.
type BytesField struct {
	length int
}

// Bytes declares a field of exactly n raw bytes.
func Bytes(n int) *BytesField { return &BytesField{length: n} }

func (f *BytesField) Parse(r *Reader, ctx Ctx) (any, error) {
	return r.ReadFull(f.length)
}

func (f *BytesField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	b, err := valueBytes(v)
	if err != nil {
		return 0, err
	}
	if len(b) != f.length {
		return 0, newError(ErrFormatField, "expected %d bytes, value has %d", f.length, len(b))
	}
	return w.WriteFull(b)
}

func (f *BytesField) Sizeof(ctx Ctx) (int, error) { return f.length, nil }

func (f *BytesField) codecName() string { return fmt.Sprintf("bytes(%d)", f.length) }

// VarBytesField is a raw byte field whose length is derived from
// context at call time, typically from a previously parsed length field.
type VarBytesField struct {
	length func(Ctx) (int, error)
}

// BytesVar declares a raw byte field of length(ctx) bytes.
func BytesVar(length func(Ctx) (int, error)) *VarBytesField {
	return &VarBytesField{length: length}
}

func (f *VarBytesField) resolve(ctx Ctx) (int, error) {
	n, err := f.length(ctx)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, newError(ErrArgument, "derived length is negative: %d", n)
	}
	return n, nil
}

func (f *VarBytesField) Parse(r *Reader, ctx Ctx) (any, error) {
	n, err := f.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.ReadFull(n)
}

func (f *VarBytesField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	n, err := f.resolve(ctx)
	if err != nil {
		return 0, err
	}
	b, err := valueBytes(v)
	if err != nil {
		return 0, err
	}
	if len(b) != n {
		return 0, newError(ErrCheck, "declared length %d, value has %d bytes", n, len(b))
	}
	return w.WriteFull(b)
}

func (f *VarBytesField) Sizeof(ctx Ctx) (int, error) {
	n, err := f.resolve(ctx)
	if err != nil {
		return 0, wrapError(ErrSizeof, err, "length not determinable")
	}
	return n, nil
}

// GreedyBytesField consumes the rest of the stream on parse and writes
// the value as-is on build.
type GreedyBytesField struct{}

// GreedyBytes declares a field over all remaining bytes.
func GreedyBytes() *GreedyBytesField { return &GreedyBytesField{} }

func (f *GreedyBytesField) Parse(r *Reader, ctx Ctx) (any, error) {
	return r.ReadAll()
}

func (f *GreedyBytesField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	b, err := valueBytes(v)
	if err != nil {
		return 0, err
	}
	return w.WriteFull(b)
}

func (f *GreedyBytesField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "greedy field has no static size")
}

// IntField packs and unpacks fixed-width integers. Parsed values carry
// their exact declared Go type (uint16, int32, ...); build accepts any
// Go integer and range-checks it against the declared width.
type IntField struct {
	size   int
	signed bool
	order  binary.ByteOrder
}

// U8 declares an unsigned 8-bit field.
func U8() *IntField { return &IntField{size: 1, order: BE} }

// I8 declares a signed 8-bit field.
func I8() *IntField { return &IntField{size: 1, signed: true, order: BE} }

// U16 declares an unsigned 16-bit field in the given byte order.
func U16(order binary.ByteOrder) *IntField { return &IntField{size: 2, order: order} }

// U32 declares an unsigned 32-bit field in the given byte order.
func U32(order binary.ByteOrder) *IntField { return &IntField{size: 4, order: order} }

// U64 declares an unsigned 64-bit field in the given byte order.
func U64(order binary.ByteOrder) *IntField { return &IntField{size: 8, order: order} }

// I16 declares a signed 16-bit field in the given byte order.
func I16(order binary.ByteOrder) *IntField { return &IntField{size: 2, signed: true, order: order} }

// I32 declares a signed 32-bit field in the given byte order.
func I32(order binary.ByteOrder) *IntField { return &IntField{size: 4, signed: true, order: order} }

// I64 declares a signed 64-bit field in the given byte order.
func I64(order binary.ByteOrder) *IntField { return &IntField{size: 8, signed: true, order: order} }

func (f *IntField) load(buf []byte) uint64 {
	switch f.size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(f.order.Uint16(buf))
	case 4:
		return uint64(f.order.Uint32(buf))
	default:
		return f.order.Uint64(buf)
	}
}

func (f *IntField) store(buf []byte, u uint64) {
	switch f.size {
	case 1:
		buf[0] = byte(u)
	case 2:
		f.order.PutUint16(buf, uint16(u))
	case 4:
		f.order.PutUint32(buf, uint32(u))
	default:
		f.order.PutUint64(buf, u)
	}
}

func (f *IntField) Parse(r *Reader, ctx Ctx) (any, error) {
	buf, err := r.ReadFull(f.size)
	if err != nil {
		return nil, err
	}
	return f.decode(buf), nil
}

// decode maps size wire bytes to the field's exact Go type.
func (f *IntField) decode(buf []byte) any {
	u := f.load(buf)
	if f.signed {
		switch f.size {
		case 1:
			return int8(u)
		case 2:
			return int16(u)
		case 4:
			return int32(u)
		default:
			return int64(u)
		}
	}
	switch f.size {
	case 1:
		return uint8(u)
	case 2:
		return uint16(u)
	case 4:
		return uint32(u)
	default:
		return u
	}
}

func (f *IntField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	u, err := f.pack(v)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, f.size)
	f.store(buf, u)
	return w.WriteFull(buf)
}

// pack coerces any Go integer into the field's wire representation,
// failing with ErrInteger on range overflow and ErrFormatField on
// non-numeric values.
func (f *IntField) pack(v any) (uint64, error) {
	i, u, isNeg, err := splitInt(v)
	if err != nil {
		return 0, err
	}
	bits := uint(f.size * 8)
	if f.signed {
		min := int64(-1) << (bits - 1)
		max := int64(1)<<(bits-1) - 1
		if !isNeg && u > uint64(max) {
			return 0, newError(ErrInteger, "value %d exceeds %d-bit signed range", u, bits)
		}
		if isNeg && i < min {
			return 0, newError(ErrInteger, "value %d below %d-bit signed range", i, bits)
		}
		if isNeg {
			return uint64(i) & (1<<bits - 1), nil
		}
		return u, nil
	}
	if isNeg {
		return 0, newError(ErrInteger, "negative value %d for unsigned %d-bit field", i, bits)
	}
	if bits < 64 && u >= 1<<bits {
		return 0, newError(ErrInteger, "value %d exceeds %d-bit unsigned range", u, bits)
	}
	return u, nil
}

// splitInt normalizes a numeric value into magnitude/sign form.
func splitInt(v any) (i int64, u uint64, neg bool, err error) {
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case uint:
		return 0, uint64(n), false, nil
	case uint8:
		return 0, uint64(n), false, nil
	case uint16:
		return 0, uint64(n), false, nil
	case uint32:
		return 0, uint64(n), false, nil
	case uint64:
		return 0, n, false, nil
	default:
		return 0, 0, false, newError(ErrFormatField, "numeric packing requires an integer, got %T", v)
	}
	if i < 0 {
		return i, 0, true, nil
	}
	return i, uint64(i), false, nil
}

func (f *IntField) Sizeof(ctx Ctx) (int, error) { return f.size, nil }

func (f *IntField) codecName() string {
	sign := "u"
	if f.signed {
		sign = "i"
	}
	ord := "be"
	if f.order == binary.ByteOrder(LE) {
		ord = "le"
	}
	if f.size == 1 {
		return fmt.Sprintf("%s8", sign)
	}
	return fmt.Sprintf("%s%d%s", sign, f.size*8, ord)
}

// ConstField enforces a constant value, typically a magic signature.
// Build ignores its input and always writes the declared constant.
type ConstField struct {
	sub   Construct
	value any
}

// Const declares a raw constant byte pattern.
func Const(data []byte) *ConstField {
	return &ConstField{sub: Bytes(len(data)), value: data}
}

// ConstOf declares a constant enforced through an arbitrary inner field.
func ConstOf(sub Construct, value any) *ConstField {
	return &ConstField{sub: sub, value: value}
}

func (f *ConstField) Parse(r *Reader, ctx Ctx) (any, error) {
	v, err := f.sub.Parse(r, ctx)
	if err != nil {
		return nil, err
	}
	if !constEqual(v, f.value) {
		return nil, newError(ErrConst, "expected %v, parsed %v", f.value, v)
	}
	return v, nil
}

func (f *ConstField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	return f.sub.Build(f.value, w, ctx)
}

func (f *ConstField) Sizeof(ctx Ctx) (int, error) { return f.sub.Sizeof(ctx) }

func (f *ConstField) derivedValue() {}

func (f *ConstField) valueForContext(ctx Ctx, w *Writer) (any, error) { return f.value, nil }

func constEqual(a, b any) bool {
	if ab, ok := a.([]byte); ok {
		bb, ok2 := b.([]byte)
		return ok2 && bytes.Equal(ab, bb)
	}
	return a == b
}

// PaddingField discards bytes on parse and emits the pattern on build.
type PaddingField struct {
	length  int
	pattern byte
	strict  bool
}

// Padding declares n bytes of zero padding.
func Padding(n int) *PaddingField { return &PaddingField{length: n} }

// PaddingWith declares n bytes of the given pattern; strict parsing
// verifies the stream actually contains it.
func PaddingWith(n int, pattern byte, strict bool) *PaddingField {
	return &PaddingField{length: n, pattern: pattern, strict: strict}
}

func (f *PaddingField) Parse(r *Reader, ctx Ctx) (any, error) {
	read, err := r.ReadFull(f.length)
	if err != nil {
		return nil, err
	}
	if f.strict {
		for i, b := range read {
			if b != f.pattern {
				return nil, newError(ErrPadding, "expected 0x%02x at pad offset %d, found 0x%02x", f.pattern, i, b)
			}
		}
	}
	return nil, nil
}

func (f *PaddingField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	if f.pattern == 0 {
		return w.WriteZeros(f.length)
	}
	return w.WriteFull(bytes.Repeat([]byte{f.pattern}, f.length))
}

func (f *PaddingField) Sizeof(ctx Ctx) (int, error) { return f.length, nil }

func (f *PaddingField) derivedValue() {}

// ComputedField contributes a value derived from context; the stream is
// untouched in both directions.
type ComputedField struct {
	fn func(Ctx) (any, error)
}

// Computed declares a context-derived value.
func Computed(fn func(Ctx) (any, error)) *ComputedField {
	return &ComputedField{fn: fn}
}

func (f *ComputedField) Parse(r *Reader, ctx Ctx) (any, error) { return f.fn(ctx) }

func (f *ComputedField) Build(v any, w *Writer, ctx Ctx) (int, error) { return 0, nil }

func (f *ComputedField) Sizeof(ctx Ctx) (int, error) { return 0, nil }

func (f *ComputedField) derivedValue() {}

func (f *ComputedField) valueForContext(ctx Ctx, w *Writer) (any, error) { return f.fn(ctx) }

// PassField parses to nil and writes nothing; the do-nothing case for
// Switch defaults.
type PassField struct{}

// Pass declares the do-nothing construct.
func Pass() *PassField { return &PassField{} }

func (f *PassField) Parse(r *Reader, ctx Ctx) (any, error) { return nil, nil }

func (f *PassField) Build(v any, w *Writer, ctx Ctx) (int, error) { return 0, nil }

func (f *PassField) Sizeof(ctx Ctx) (int, error) { return 0, nil }

func (f *PassField) derivedValue() {}

// TerminatorField asserts end of stream on parse.
type TerminatorField struct{}

// Terminator declares an end-of-stream assertion.
func Terminator() *TerminatorField { return &TerminatorField{} }

func (f *TerminatorField) Parse(r *Reader, ctx Ctx) (any, error) {
	if !r.Exhausted() {
		return nil, newError(ErrTerminator, "trailing data after expected end")
	}
	return nil, nil
}

func (f *TerminatorField) Build(v any, w *Writer, ctx Ctx) (int, error) { return 0, nil }

func (f *TerminatorField) Sizeof(ctx Ctx) (int, error) { return 0, nil }

func (f *TerminatorField) derivedValue() {}

// AnchorField records the current byte offset into the result and
// context. Offsets come from the engine's own accounting, so anchors
// work on non-seekable streams.
type AnchorField struct{}

// Anchor declares a byte-offset marker.
func Anchor() *AnchorField { return &AnchorField{} }

func (f *AnchorField) Parse(r *Reader, ctx Ctx) (any, error) { return r.Count(), nil }

func (f *AnchorField) Build(v any, w *Writer, ctx Ctx) (int, error) { return 0, nil }

func (f *AnchorField) Sizeof(ctx Ctx) (int, error) { return 0, nil }

func (f *AnchorField) derivedValue() {}

func (f *AnchorField) valueForContext(ctx Ctx, w *Writer) (any, error) { return w.Count(), nil }

// VarIntField is a base-128 varint as used by protocol buffers.
type VarIntField struct{}

// VarInt declares a varint-encoded unsigned integer.
func VarInt() *VarIntField { return &VarIntField{} }

func (f *VarIntField) Parse(r *Reader, ctx Ctx) (any, error) {
	var acc uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if shift >= 64 {
			return nil, newError(ErrInteger, "varint exceeds 64 bits")
		}
		acc |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return acc, nil
		}
		shift += 7
	}
}

func (f *VarIntField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	i, u, neg, err := splitInt(v)
	if err != nil {
		return 0, err
	}
	if neg {
		return 0, newError(ErrInteger, "varint cannot encode negative value %d", i)
	}
	var out [10]byte
	n := 0
	for u > 0x7f {
		out[n] = byte(u) | 0x80
		u >>= 7
		n++
	}
	out[n] = byte(u)
	return w.WriteFull(out[:n+1])
}

func (f *VarIntField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "varint size depends on its value")
}
