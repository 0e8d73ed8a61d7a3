package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasFlag(bit uint8) func(Ctx) bool {
	return func(ctx Ctx) bool {
		n, err := ctx.Int("flags")
		return err == nil && uint8(n)&bit != 0
	}
}

func TestIf(t *testing.T) {
	con := Struct(
		F("flags", U8()),
		F("extra", If(hasFlag(0x01), U16(BE))),
	)

	v, err := ParseBytes(con, []byte{0x01, 0x00, 0x07})
	require.NoError(t, err)
	extra, _ := v.(*Container).Get("extra")
	assert.Equal(t, uint16(7), extra)

	v, err = ParseBytes(con, []byte{0x00})
	require.NoError(t, err)
	extra, _ = v.(*Container).Get("extra")
	assert.Nil(t, extra)

	wire, err := BuildBytes(con, NewContainer().Set("flags", uint8(0)).Set("extra", nil))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, wire)
}

func TestIfThenElse(t *testing.T) {
	con := Struct(
		F("flags", U8()),
		F("id", IfThenElse(hasFlag(0x80), U32(BE), U8())),
	)

	v, err := ParseBytes(con, []byte{0x80, 0, 0, 0, 5})
	require.NoError(t, err)
	id, _ := v.(*Container).Get("id")
	assert.Equal(t, uint32(5), id)

	v, err = ParseBytes(con, []byte{0x00, 5})
	require.NoError(t, err)
	id, _ = v.(*Container).Get("id")
	assert.Equal(t, uint8(5), id)
}

func keyField(name string) func(Ctx) (any, error) {
	return func(ctx Ctx) (any, error) {
		v, ok := ctx.Get(name)
		if !ok {
			return nil, newError(ErrMissingField, "context has no entry %q", name)
		}
		return v, nil
	}
}

func TestSwitch(t *testing.T) {
	con := Struct(
		F("tag", U8()),
		F("body", Switch(keyField("tag"), map[any]Construct{
			uint8(1): U16(BE),
			uint8(2): Bytes(3),
		})),
	)

	v, err := ParseBytes(con, []byte{1, 0x12, 0x34})
	require.NoError(t, err)
	body, _ := v.(*Container).Get("body")
	assert.Equal(t, uint16(0x1234), body)

	v, err = ParseBytes(con, []byte{2, 'a', 'b', 'c'})
	require.NoError(t, err)
	body, _ = v.(*Container).Get("body")
	assert.Equal(t, []byte("abc"), body)

	_, err = ParseBytes(con, []byte{9, 0})
	assert.ErrorIs(t, err, ErrSwitch)

	_, err = BuildBytes(con, NewContainer().Set("tag", uint8(9)).Set("body", nil))
	assert.ErrorIs(t, err, ErrSwitch)
}

func TestSwitchDefault(t *testing.T) {
	con := Struct(
		F("tag", U8()),
		F("body", SwitchDefault(keyField("tag"), map[any]Construct{
			uint8(1): U16(BE),
		}, GreedyBytes())),
	)

	v, err := ParseBytes(con, []byte{9, 'x', 'y'})
	require.NoError(t, err)
	body, _ := v.(*Container).Get("body")
	assert.Equal(t, []byte("xy"), body)
}

func TestSwitchPassDefault(t *testing.T) {
	con := Struct(
		F("tag", U8()),
		F("body", SwitchDefault(keyField("tag"), map[any]Construct{
			uint8(1): U8(),
		}, Pass())),
	)

	v, err := ParseBytes(con, []byte{5})
	require.NoError(t, err)
	body, _ := v.(*Container).Get("body")
	assert.Nil(t, body)

	wire, err := BuildBytes(con, NewContainer().Set("tag", uint8(5)).Set("body", nil))
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, wire)
}

func TestEmbeddedSwitch(t *testing.T) {
	con := Struct(
		F("tag", U8()),
		EmbeddedSwitch(keyField("tag"), map[any]Construct{
			uint8(1): Struct(F("a", U8())),
			uint8(2): Struct(F("x", U8()), F("y", U8())),
		}),
	)

	v, err := ParseBytes(con, []byte{2, 7, 8})
	require.NoError(t, err)

	c := v.(*Container)
	assert.Equal(t, []string{"tag", "x", "y"}, c.Keys())
	x, _ := c.Get("x")
	assert.Equal(t, uint8(7), x)

	// Only the selected case's keys merge.
	assert.False(t, c.Has("a"))

	wire, err := BuildBytes(con, NewContainer().
		Set("tag", uint8(2)).
		Set("x", uint8(7)).
		Set("y", uint8(8)))
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 7, 8}, wire)

	_, err = ParseBytes(con, []byte{9})
	assert.ErrorIs(t, err, ErrSwitch)
}

func TestEmbeddedSwitchKeyVisibility(t *testing.T) {
	// A sibling after the embedded switch resolves a key the selected
	// case spliced in, on build as well as on parse.
	con := Struct(
		F("tag", U8()),
		EmbeddedSwitch(keyField("tag"), map[any]Construct{
			uint8(1): Struct(F("size", U8())),
		}),
		F("body", BytesVar(lengthOf("size"))),
	)

	wire, err := BuildBytes(con, NewContainer().
		Set("tag", uint8(1)).
		Set("size", uint8(2)).
		Set("body", []byte("ok")))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 'o', 'k'}, wire)

	v, err := ParseBytes(con, wire)
	require.NoError(t, err)
	body, _ := v.(*Container).Get("body")
	assert.Equal(t, []byte("ok"), body)
}
