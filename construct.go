package construct

import "io"

// Construct is the uniform contract every schema node implements, leaf
// or combinator. A single definition yields both directions plus a
// static size where one exists:
//
//   - Parse reads from the stream and returns the decoded value.
//   - Build writes the value and returns the number of bytes written.
//     Constructs account for their own length; none of them may infer
//     consumption from stream position.
//   - Sizeof returns the encoded size for the given context, or fails
//     with ErrSizeof when the size depends on data not yet known.
//
// Combinators delegate to sub-constructs exclusively through this
// interface, which is what lets user-defined leaves participate as
// equals.
type Construct interface {
	Parse(r *Reader, ctx Ctx) (any, error)
	Build(v any, w *Writer, ctx Ctx) (int, error)
	Sizeof(ctx Ctx) (int, error)
}

// Member binds a construct into a Struct or Sequence slot.
type Member struct {
	// Name keys the member's value in the result and context. Anonymous
	// members ("") parse for effect only.
	Name string
	Con  Construct
	// Embed splices the member's result keys directly into the parent
	// instead of nesting them under Name.
	Embed bool
	// Optional members may be absent from the value given to Build;
	// Default is built in their place.
	Optional bool
	Default  any
}

// F names a required member.
func F(name string, c Construct) Member {
	return Member{Name: name, Con: c}
}

// Embedded marks a member whose result keys merge into the parent.
func Embedded(c Construct) Member {
	return Member{Con: c, Embed: true}
}

// Opt names a member that may be omitted on build, with def built in
// its place.
func Opt(name string, c Construct, def any) Member {
	return Member{Name: name, Con: c, Optional: true, Default: def}
}

// derived marks constructs whose build input comes from context or
// configuration rather than from the supplied value (Computed, Const,
// Padding and friends). Struct builds skip the missing-field check for
// them.
type derived interface {
	derivedValue()
}

// external identifies leaf encodings by name, which the compiler
// reports for subtrees it cannot specialize.
type external interface {
	codecName() string
}

// ParseStream parses one value from r with a fresh context.
func ParseStream(c Construct, r io.Reader) (any, error) {
	return c.Parse(NewReader(r), NewContext())
}

// ParseBytes parses one value from an in-memory buffer.
func ParseBytes(c Construct, data []byte) (any, error) {
	return ParseStream(c, NewBytesReader(data))
}

// BuildStream builds v into w, returning the number of bytes written.
func BuildStream(c Construct, v any, w io.Writer) (int, error) {
	return c.Build(v, NewWriter(w), NewContext())
}

// BuildBytes builds v into a new byte slice.
func BuildBytes(c Construct, v any) ([]byte, error) {
	sink := NewBytesWriter()
	if _, err := BuildStream(c, v, sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// SizeofStatic computes the construct's size with an empty context.
// Data-dependent sizes fail with ErrSizeof.
func SizeofStatic(c Construct) (int, error) {
	return c.Sizeof(NewContext())
}
