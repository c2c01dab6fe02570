package snapshot

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio, good for cold data).
	CompressionZSTD Compression = 2
)

// ErrUnknownCompression indicates a stream written with a compression
// codec this build does not recognize.
type ErrUnknownCompression struct {
	Codec uint8
}

func (e *ErrUnknownCompression) Error() string {
	return fmt.Sprintf("snapshot: unknown compression codec %d", e.Codec)
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	// Level 3 balances compression ratio vs speed
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress returns the compressed form of data under the given codec,
// or nil when the data is incompressible (or compression is off) and
// should be stored raw.
func compress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone || len(data) == 0 {
		return nil, nil
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4 compress: %w", err)
		}
		if n == 0 {
			return nil, nil // Incompressible
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, &ErrUnknownCompression{Codec: uint8(c)}
	}

	// If compression doesn't help (ratio > 0.9), store raw instead.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return compressed, nil
}

// decompress expands payload into dst, which must be exactly the
// original block length.
func decompress(dst, payload []byte, c Compression) error {
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("snapshot: lz4 decompress: %w", err)
		}
		if n != len(dst) {
			return fmt.Errorf("snapshot: lz4 decompress: got %d bytes, want %d", n, len(dst))
		}
		return nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, dst[:0])
		putZstdDecoder(dec)
		if err != nil {
			return fmt.Errorf("snapshot: zstd decompress: %w", err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("snapshot: zstd decompress: got %d bytes, want %d", len(out), len(dst))
		}
		return nil
	default:
		return &ErrUnknownCompression{Codec: uint8(c)}
	}
}
