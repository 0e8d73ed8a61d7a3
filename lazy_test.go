package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listNode ties a singly linked list to itself through a lazy binding.
func listNode() Construct {
	var node Construct
	node = Struct(
		F("value", U8()),
		F("more", U8()),
		F("next", If(
			func(ctx Ctx) bool { n, err := ctx.Int("more"); return err == nil && n != 0 },
			LazyBound(func() Construct { return node }),
		)),
	)
	return node
}

func TestLazyBoundRecursion(t *testing.T) {
	v, err := ParseBytes(listNode(), []byte{10, 1, 20, 1, 30, 0})
	require.NoError(t, err)

	first := v.(*Container)
	val, _ := first.Get("value")
	assert.Equal(t, uint8(10), val)

	next, _ := first.Get("next")
	second := next.(*Container)
	val, _ = second.Get("value")
	assert.Equal(t, uint8(20), val)

	next, _ = second.Get("next")
	third := next.(*Container)
	val, _ = third.Get("value")
	assert.Equal(t, uint8(30), val)
	tail, _ := third.Get("next")
	assert.Nil(t, tail)
}

func TestLazyBoundBuild(t *testing.T) {
	list := NewContainer().
		Set("value", uint8(1)).
		Set("more", uint8(1)).
		Set("next", NewContainer().
			Set("value", uint8(2)).
			Set("more", uint8(0)).
			Set("next", nil))

	wire, err := BuildBytes(listNode(), list)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 2, 0}, wire)
}

func TestLazyBoundNilResolution(t *testing.T) {
	_, err := ParseBytes(LazyBound(func() Construct { return nil }), []byte{1})
	assert.ErrorIs(t, err, ErrArgument)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("u16", U16(BE)))
	assert.ErrorIs(t, reg.Register("u16", U16(LE)), ErrArgument)
	assert.ErrorIs(t, reg.Register("nil", nil), ErrArgument)

	c, ok := reg.Lookup("u16")
	require.True(t, ok)
	v, err := ParseBytes(c, []byte{0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestRegistryRefResolvesLate(t *testing.T) {
	reg := NewRegistry()

	// The reference is taken before the name exists.
	ref := reg.Ref("payload")
	_, err := ParseBytes(ref, []byte{1})
	assert.ErrorIs(t, err, ErrArgument)

	require.NoError(t, reg.Register("payload", U8()))
	v, err := ParseBytes(ref, []byte{7})
	require.NoError(t, err)
	assert.Equal(t, uint8(7), v)
}

func TestRegistryMutualRecursion(t *testing.T) {
	reg := NewRegistry()

	// A tree: each node is a tag byte, 0 leaves, 1 forks into two nodes.
	require.NoError(t, reg.Register("node", Struct(
		F("tag", U8()),
		F("kids", If(
			func(ctx Ctx) bool { n, err := ctx.Int("tag"); return err == nil && n == 1 },
			reg.Ref("pair"),
		)),
	)))
	require.NoError(t, reg.Register("pair", Sequence(reg.Ref("node"), reg.Ref("node"))))

	v, err := ParseBytes(reg.Ref("node"), []byte{1, 0, 1, 0, 0})
	require.NoError(t, err)

	root := v.(*Container)
	kids, _ := root.Get("kids")
	pair := kids.([]any)
	left, _ := pair[0].(*Container).Get("tag")
	assert.Equal(t, uint8(0), left)

	right := pair[1].(*Container)
	rkids, _ := right.Get("kids")
	rpair := rkids.([]any)
	rl, _ := rpair[0].(*Container).Get("tag")
	rr, _ := rpair[1].(*Container).Get("tag")
	assert.Equal(t, uint8(0), rl)
	assert.Equal(t, uint8(0), rr)
}
