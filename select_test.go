package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectParse(t *testing.T) {
	alt := Select(
		Struct(F("magic", Const([]byte{0xff})), F("v", U8())),
		U16(BE),
	)

	// The first case consumes a byte before failing; rollback lets the
	// second case see the full input.
	v, err := ParseBytes(alt, []byte{0x00, 0x07})
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)

	v, err = ParseBytes(alt, []byte{0xff, 0x07})
	require.NoError(t, err)
	c, ok := v.(*Container)
	require.True(t, ok)
	got, _ := c.Get("v")
	assert.Equal(t, uint8(7), got)

	_, err = ParseBytes(Select(U32(BE)), []byte{1})
	assert.ErrorIs(t, err, ErrSwitch)
}

func TestSelectBuild(t *testing.T) {
	alt := Select(U8(), CString())

	wire, err := BuildBytes(alt, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, wire)

	wire, err = BuildBytes(alt, "hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{'h', 'i', 0}, wire)

	_, err = BuildBytes(alt, []any{1})
	assert.ErrorIs(t, err, ErrSwitch)

	_, err = SizeofStatic(alt)
	assert.ErrorIs(t, err, ErrSizeof)
}

func TestUnionParse(t *testing.T) {
	u := Union(
		F("raw", Bytes(4)),
		F("word", U32(BE)),
		F("halves", Array(2, U16(BE))),
	)

	s := Struct(F("view", u), F("after", U8()))
	v, err := ParseBytes(s, []byte{0, 0, 0, 9, 42})
	require.NoError(t, err)

	view, _ := v.(*Container).Get("view")
	c := view.(*Container)
	raw, _ := c.Get("raw")
	assert.Equal(t, []byte{0, 0, 0, 9}, raw)
	word, _ := c.Get("word")
	assert.Equal(t, uint32(9), word)
	halves, _ := c.Get("halves")
	assert.Equal(t, []any{uint16(0), uint16(9)}, halves)

	// The union advances by its first member's span only.
	after, _ := v.(*Container).Get("after")
	assert.Equal(t, uint8(42), after)
}

func TestUnionBuild(t *testing.T) {
	u := Union(
		F("raw", Bytes(4)),
		F("word", U32(BE)),
	)

	// The first member present in the value is the one written.
	wire, err := BuildBytes(u, NewContainer().Set("word", uint32(9)))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 9}, wire)

	_, err = BuildBytes(u, NewContainer())
	assert.ErrorIs(t, err, ErrMissingField)

	n, err := SizeofStatic(u)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
