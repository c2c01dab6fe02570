package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	minarrow "github.com/pbower/minarrow-go"
	"github.com/pbower/minarrow-go/internal/hash"
)

const (
	// Version is the current snapshot format version.
	Version = 1

	// DefaultBlockSize is the default compression block size (256 KiB).
	DefaultBlockSize = 256 * 1024
)

// magic identifies a snapshot stream.
var magic = [4]byte{'M', 'A', 'S', '1'}

// ErrBadMagic indicates the stream does not start with the snapshot magic.
var ErrBadMagic = errors.New("snapshot: bad magic")

// ErrVersionMismatch indicates a snapshot written by an incompatible
// format version.
type ErrVersionMismatch struct {
	Expected uint8
	Actual   uint8
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("snapshot: version mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrChecksumMismatch indicates a corrupted block.
type ErrChecksumMismatch struct {
	Buffer   int
	Block    int
	Expected uint32
	Actual   uint32
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch in buffer %d block %d: expected %08x, got %08x",
		e.Buffer, e.Block, e.Expected, e.Actual)
}

// Options configures snapshot writing.
type Options struct {
	// Compression selects the block codec. Default: CompressionZSTD.
	Compression Compression

	// BlockSize is the uncompressed block size. Default: DefaultBlockSize.
	BlockSize int

	// Concurrency bounds parallel block compression. Default: GOMAXPROCS.
	Concurrency int

	// Logger for snapshot operations. Default: NoopLogger.
	Logger *minarrow.Logger
}

// Option configures snapshot options.
type Option func(*Options)

// WithCompression sets the block compression codec.
func WithCompression(c Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithBlockSize sets the uncompressed block size.
func WithBlockSize(size int) Option {
	return func(o *Options) {
		o.BlockSize = size
	}
}

// WithConcurrency bounds the number of blocks compressed in parallel.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithLogger sets the logger for snapshot operations.
func WithLogger(logger *minarrow.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func defaultOptions() Options {
	return Options{
		Compression: CompressionZSTD,
		BlockSize:   DefaultBlockSize,
		Concurrency: runtime.GOMAXPROCS(0),
		Logger:      minarrow.NoopLogger(),
	}
}

// block is one framed unit of a serialized buffer.
type block struct {
	uncompressed int
	payload      []byte // compressed form, or nil when stored raw
	raw          []byte // original bytes, referenced when payload is nil
	crc          uint32
}

// Write serializes buffers to w.
//
// Stream layout:
//
//	magic(4) | version(1) | codec(1) | reserved(2) | count(u32)
//	per buffer:  totalLen(u64) | blockCount(u32)
//	per block:   uncompressed(u32) | compressed(u32, 0 = raw) | payload | crc32c(u32)
//
// All integers are little-endian. The checksum covers the stored payload
// (compressed bytes, or the raw bytes when the block is stored raw).
func Write(w io.Writer, buffers []*minarrow.Buffer, optFns ...Option) error {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	var header [12]byte
	copy(header[:4], magic[:])
	header[4] = Version
	header[5] = uint8(opts.Compression)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(buffers)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}

	for i, buf := range buffers {
		if err := writeBuffer(w, buf.Bytes(), opts); err != nil {
			return fmt.Errorf("snapshot: write buffer %d: %w", i, err)
		}
	}

	opts.Logger.WithBuffers(len(buffers)).Info("snapshot written",
		"codec", opts.Compression,
		"block_size", opts.BlockSize)
	return nil
}

func writeBuffer(w io.Writer, data []byte, opts Options) error {
	blocks := splitBlocks(data, opts.BlockSize)

	var desc [12]byte
	binary.LittleEndian.PutUint64(desc[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(desc[8:], uint32(len(blocks)))
	if _, err := w.Write(desc[:]); err != nil {
		return err
	}

	framed := make([]block, len(blocks))

	// Compress blocks in parallel; frame order is preserved by index.
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)
	for i, raw := range blocks {
		g.Go(func() error {
			payload, err := compress(raw, opts.Compression)
			if err != nil {
				return err
			}
			stored := payload
			if stored == nil {
				stored = raw
			}
			framed[i] = block{
				uncompressed: len(raw),
				payload:      payload,
				raw:          raw,
				crc:          hash.CRC32C(stored),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var frame [8]byte
	for _, b := range framed {
		stored := b.payload
		compressedLen := len(stored)
		if stored == nil {
			stored = b.raw
			compressedLen = 0
		}
		binary.LittleEndian.PutUint32(frame[:4], uint32(b.uncompressed))
		binary.LittleEndian.PutUint32(frame[4:], uint32(compressedLen))
		if _, err := w.Write(frame[:]); err != nil {
			return err
		}
		if _, err := w.Write(stored); err != nil {
			return err
		}
		var crc [4]byte
		binary.LittleEndian.PutUint32(crc[:], b.crc)
		if _, err := w.Write(crc[:]); err != nil {
			return err
		}
	}
	return nil
}

func splitBlocks(data []byte, blockSize int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	blocks := make([][]byte, 0, (len(data)+blockSize-1)/blockSize)
	for off := 0; off < len(data); off += blockSize {
		end := min(off+blockSize, len(data))
		blocks = append(blocks, data[off:end])
	}
	return blocks
}

// Read deserializes a snapshot stream. Restored buffers are backed by
// 64-byte-aligned allocations.
func Read(r io.Reader) ([]*minarrow.Buffer, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, ErrBadMagic
	}
	if header[4] != Version {
		return nil, &ErrVersionMismatch{Expected: Version, Actual: header[4]}
	}
	codec := Compression(header[5])
	count := binary.LittleEndian.Uint32(header[8:])

	buffers := make([]*minarrow.Buffer, 0, count)
	for i := 0; i < int(count); i++ {
		buf, err := readBuffer(r, codec, i)
		if err != nil {
			closeAll(buffers)
			return nil, err
		}
		buffers = append(buffers, buf)
	}
	return buffers, nil
}

func readBuffer(r io.Reader, codec Compression, idx int) (*minarrow.Buffer, error) {
	var desc [12]byte
	if _, err := io.ReadFull(r, desc[:]); err != nil {
		return nil, fmt.Errorf("snapshot: read buffer %d descriptor: %w", idx, err)
	}
	totalLen := binary.LittleEndian.Uint64(desc[:8])
	blockCount := binary.LittleEndian.Uint32(desc[8:])

	data := minarrow.AllocAligned(int(totalLen))
	off := 0
	for b := 0; b < int(blockCount); b++ {
		var frame [8]byte
		if _, err := io.ReadFull(r, frame[:]); err != nil {
			return nil, fmt.Errorf("snapshot: read buffer %d block %d frame: %w", idx, b, err)
		}
		uncompressed := int(binary.LittleEndian.Uint32(frame[:4]))
		compressed := int(binary.LittleEndian.Uint32(frame[4:]))
		if off+uncompressed > len(data) {
			return nil, fmt.Errorf("snapshot: buffer %d block %d overflows declared length %d", idx, b, totalLen)
		}

		storedLen := compressed
		if storedLen == 0 {
			storedLen = uncompressed
		}
		payload := make([]byte, storedLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("snapshot: read buffer %d block %d payload: %w", idx, b, err)
		}
		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return nil, fmt.Errorf("snapshot: read buffer %d block %d checksum: %w", idx, b, err)
		}
		expected := binary.LittleEndian.Uint32(crcBuf[:])
		if actual := hash.CRC32C(payload); actual != expected {
			return nil, &ErrChecksumMismatch{Buffer: idx, Block: b, Expected: expected, Actual: actual}
		}

		dst := data[off : off+uncompressed]
		if compressed == 0 {
			copy(dst, payload)
		} else if err := decompress(dst, payload, codec); err != nil {
			return nil, fmt.Errorf("snapshot: buffer %d block %d: %w", idx, b, err)
		}
		off += uncompressed
	}
	if off != int(totalLen) {
		return nil, fmt.Errorf("snapshot: buffer %d truncated: got %d bytes, want %d", idx, off, totalLen)
	}
	return minarrow.FromAligned(data), nil
}

func closeAll(buffers []*minarrow.Buffer) {
	for _, b := range buffers {
		b.Close()
	}
}
