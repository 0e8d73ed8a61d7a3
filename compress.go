package construct

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// CompressedZlib declares sub stored zlib-compressed at the given
// compression level.
func CompressedZlib(sub Construct, level int) *TunnelField {
	return NewTunnel(sub,
		func(wire []byte) ([]byte, error) {
			zr, err := zlib.NewReader(bytes.NewReader(wire))
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			return io.ReadAll(zr)
		},
		func(plain []byte) ([]byte, error) {
			var buf bytes.Buffer
			zw, err := zlib.NewWriterLevel(&buf, level)
			if err != nil {
				return nil, err
			}
			if _, err := zw.Write(plain); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
}

// CompressedFlate declares sub stored as a raw DEFLATE stream at the
// given compression level.
func CompressedFlate(sub Construct, level int) *TunnelField {
	return NewTunnel(sub,
		func(wire []byte) ([]byte, error) {
			fr := flate.NewReader(bytes.NewReader(wire))
			defer fr.Close()
			return io.ReadAll(fr)
		},
		func(plain []byte) ([]byte, error) {
			var buf bytes.Buffer
			fw, err := flate.NewWriter(&buf, level)
			if err != nil {
				return nil, err
			}
			if _, err := fw.Write(plain); err != nil {
				return nil, err
			}
			if err := fw.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
}
