package construct

import "testing"

var benchWire = []byte{0xca, 0xfe, 2, 0x00, 0x10, 'a', 'b', 'c', 'd', 0}

func benchValue() *Container {
	return NewContainer().
		Set("version", uint8(2)).
		Set("length", uint16(16)).
		Set("id", []byte("abcd"))
}

func BenchmarkParseInterpreted(b *testing.B) {
	schema := headerSchema()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseBytes(schema, benchWire); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseCompiled(b *testing.B) {
	prog := Compile(headerSchema())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseBytes(prog, benchWire); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildInterpreted(b *testing.B) {
	schema := headerSchema()
	v := benchValue()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildBytes(schema, v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildCompiled(b *testing.B) {
	prog := Compile(headerSchema())
	v := benchValue()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildBytes(prog, v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGreedyRange(b *testing.B) {
	g := GreedyRange(U32(BE))
	wire := make([]byte, 4*256)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseBytes(g, wire); err != nil {
			b.Fatal(err)
		}
	}
}
