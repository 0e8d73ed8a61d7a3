package construct

import (
	"encoding/binary"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// sizeCache memoizes binary.Size per concrete type; reflection-based
// sizing is not free and Native fields are typically hot.
var sizeCache = xsync.NewMap[reflect.Type, int]()

func nativeSize[T any]() (int, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if n, ok := sizeCache.Load(t); ok {
		return n, nil
	}
	n := binary.Size(zero)
	if n < 0 {
		return 0, newError(ErrSizeof, "type %T has no fixed binary size", zero)
	}
	sizeCache.Store(t, n)
	return n, nil
}

// NativeField maps a fixed-layout Go type (numeric types, arrays and
// structs thereof) straight onto its binary representation. It is the
// escape hatch for record layouts that are more naturally described as
// a Go struct than as a schema tree.
type NativeField[T any] struct {
	order binary.ByteOrder
}

// Native declares a field over T's fixed binary layout.
func Native[T any](order binary.ByteOrder) *NativeField[T] {
	return &NativeField[T]{order: order}
}

func (f *NativeField[T]) Parse(r *Reader, ctx Ctx) (any, error) {
	n, err := nativeSize[T]()
	if err != nil {
		return nil, err
	}
	buf, err := r.ReadFull(n)
	if err != nil {
		return nil, err
	}
	var v T
	if _, err := binary.Decode(buf, f.order, &v); err != nil {
		return nil, wrapError(ErrFormatField, err, "decoding %T", v)
	}
	return v, nil
}

func (f *NativeField[T]) Build(v any, w *Writer, ctx Ctx) (int, error) {
	tv, ok := v.(T)
	if !ok {
		var zero T
		return 0, newError(ErrFormatField, "expected %T, got %T", zero, v)
	}
	n, err := nativeSize[T]()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, n)
	if _, err := binary.Encode(buf, f.order, tv); err != nil {
		return 0, wrapError(ErrFormatField, err, "encoding %T", tv)
	}
	return w.WriteFull(buf)
}

func (f *NativeField[T]) Sizeof(ctx Ctx) (int, error) {
	return nativeSize[T]()
}

func (f *NativeField[T]) codecName() string {
	var zero T
	return "native " + reflect.TypeOf(zero).String()
}
