package construct

import (
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipv4Adapter() *AdapterField {
	return Adapt(Bytes(4),
		func(wire any, ctx Ctx) (any, error) {
			b := wire.([]byte)
			return [4]byte{b[0], b[1], b[2], b[3]}, nil
		},
		func(value any, ctx Ctx) (any, error) {
			a, ok := value.([4]byte)
			if !ok {
				return nil, newError(ErrFormatField, "expected [4]byte, got %T", value)
			}
			return a[:], nil
		})
}

func TestAdapter(t *testing.T) {
	ip := ipv4Adapter()

	v, err := ParseBytes(ip, []byte{192, 168, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, [4]byte{192, 168, 0, 1}, v)

	wire, err := BuildBytes(ip, [4]byte{10, 0, 0, 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 0, 0, 7}, wire)

	_, err = BuildBytes(ip, "10.0.0.7")
	assert.ErrorIs(t, err, ErrFormatField)

	n, err := SizeofStatic(ip)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestAdapterErrorGetsPathAtStructBoundary(t *testing.T) {
	con := Struct(F("addr", ipv4Adapter()))
	_, err := BuildBytes(con, NewContainer().Set("addr", 42))
	require.Error(t, err)

	var rec *Error
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "addr", rec.Path.String())
}

func TestValidate(t *testing.T) {
	port := Validate(U16(BE), func(v any, ctx Ctx) bool {
		return v.(uint16) >= 1024
	})

	v, err := ParseBytes(port, []byte{0x1f, 0x90})
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), v)

	_, err = ParseBytes(port, []byte{0x00, 0x50})
	assert.ErrorIs(t, err, ErrCheck)

	_, err = BuildBytes(port, uint16(80))
	assert.ErrorIs(t, err, ErrCheck)
}

func TestPrefixed(t *testing.T) {
	p := Prefixed(U8(), GreedyBytes())

	wire, err := BuildBytes(p, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x05hello"), wire)

	v, err := ParseBytes(p, wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)
}

func TestPrefixedBoundsInnerGreed(t *testing.T) {
	// The greedy payload sees only its window; the tail stays available.
	con := Struct(
		F("msg", Prefixed(U8(), GreedyString())),
		F("tail", U8()),
	)
	v, err := ParseBytes(con, []byte("\x02hi\x09"))
	require.NoError(t, err)

	c := v.(*Container)
	msg, _ := c.Get("msg")
	tail, _ := c.Get("tail")
	assert.Equal(t, "hi", msg)
	assert.Equal(t, uint8(9), tail)
}

func TestPrefixedTruncatedWindow(t *testing.T) {
	_, err := ParseBytes(Prefixed(U8(), GreedyBytes()), []byte("\x05hi"))
	assert.ErrorIs(t, err, ErrStream)
}

func TestAligned(t *testing.T) {
	a := Aligned(4, U16(BE))

	wire, err := BuildBytes(a, uint16(7))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 7, 0, 0}, wire)

	v, err := ParseBytes(a, wire)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)

	n, err := SizeofStatic(a)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = ParseBytes(Aligned(0, U8()), []byte{1})
	assert.ErrorIs(t, err, ErrArgument)
}

func TestPeek(t *testing.T) {
	con := Struct(
		F("ahead", Peek(U16(BE))),
		F("a", U8()),
		F("b", U8()),
	)

	v, err := ParseBytes(con, []byte{0x12, 0x34})
	require.NoError(t, err)

	c := v.(*Container)
	ahead, _ := c.Get("ahead")
	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.Equal(t, uint16(0x1234), ahead)
	assert.Equal(t, uint8(0x12), a)
	assert.Equal(t, uint8(0x34), b)

	// Peeking past the end yields nil instead of failing.
	v, err = ParseBytes(Peek(U32(BE)), []byte{1})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRawCopy(t *testing.T) {
	rc := RawCopy(Struct(F("a", U8()), F("b", U16(BE))))

	v, err := ParseBytes(rc, []byte{1, 0x02, 0x03})
	require.NoError(t, err)

	c := v.(*Container)
	data, _ := c.Get("data")
	value, _ := c.Get("value")
	length, _ := c.Get("length")
	offset1, _ := c.Get("offset1")
	offset2, _ := c.Get("offset2")
	assert.Equal(t, []byte{1, 0x02, 0x03}, data)
	assert.Equal(t, 3, length)
	assert.Equal(t, int64(0), offset1)
	assert.Equal(t, int64(3), offset2)
	a, _ := value.(*Container).Get("a")
	assert.Equal(t, uint8(1), a)

	// Raw bytes win over the decoded value on build.
	wire, err := BuildBytes(rc, NewContainer().Set("data", []byte{9, 9, 9}))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, wire)

	wire, err = BuildBytes(rc, NewContainer().
		Set("value", NewContainer().Set("a", uint8(1)).Set("b", uint16(0x0203))))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0x02, 0x03}, wire)

	_, err = BuildBytes(rc, NewContainer())
	assert.ErrorIs(t, err, ErrRawCopy)

	_, err = BuildBytes(rc, 42)
	assert.ErrorIs(t, err, ErrRawCopy)
}

func TestTunnelBase(t *testing.T) {
	// An xor tunnel is enough to prove the byte window plumbing.
	xor := func(b []byte) ([]byte, error) {
		out := make([]byte, len(b))
		for i, x := range b {
			out[i] = x ^ 0x5a
		}
		return out, nil
	}
	tun := NewTunnel(Struct(F("v", U16(BE))), xor, xor)

	wire, err := BuildBytes(tun, NewContainer().Set("v", uint16(0x0102)))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01 ^ 0x5a, 0x02 ^ 0x5a}, wire)

	v, err := ParseBytes(tun, wire)
	require.NoError(t, err)
	got, _ := v.(*Container).Get("v")
	assert.Equal(t, uint16(0x0102), got)
}

func TestCompressedZlib(t *testing.T) {
	con := CompressedZlib(Struct(
		F("count", U8()),
		F("body", GreedyString()),
	), flate.BestSpeed)

	plain := NewContainer().
		Set("count", uint8(3)).
		Set("body", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	wire, err := BuildBytes(con, plain)
	require.NoError(t, err)

	v, err := ParseBytes(con, wire)
	require.NoError(t, err)

	c := v.(*Container)
	count, _ := c.Get("count")
	body, _ := c.Get("body")
	assert.Equal(t, uint8(3), count)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", body)
}

func TestCompressedFlate(t *testing.T) {
	con := CompressedFlate(GreedyBytes(), flate.DefaultCompression)

	payload := []byte("the same bytes the same bytes the same bytes")
	wire, err := BuildBytes(con, payload)
	require.NoError(t, err)

	v, err := ParseBytes(con, wire)
	require.NoError(t, err)
	assert.Equal(t, payload, v)
}

func TestCompressedGarbage(t *testing.T) {
	_, err := ParseBytes(CompressedZlib(GreedyBytes(), flate.BestSpeed), []byte("not zlib"))
	assert.ErrorIs(t, err, ErrStream)
}
