// Package compression wraps zstd for blob payloads.
//
// Payloads are framed with a one-byte header so Decompress never has to guess
// whether the stored bytes were compressed.
package compression

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	frameRaw  byte = 0
	frameZstd byte = 1

	// Payloads smaller than this are stored raw; zstd framing overhead
	// outweighs any gain.
	minCompressSize = 128
)

var ErrCorrupt = errors.New("compression: corrupt payload")

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor builds a compressor. Level 1 is fastest, 3 favours ratio;
// anything else maps to the zstd default. A disabled compressor still reads
// payloads written by an enabled one.
func NewCompressor(level int, enabled bool) (*Compressor, error) {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	c := &Compressor{enabled: enabled}
	if enabled {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(encoderLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		c.encoder = encoder
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	c.decoder = decoder
	return c, nil
}

func (c *Compressor) Compress(data []byte) []byte {
	if c.enabled && len(data) >= minCompressSize {
		out := make([]byte, 1, len(data)/2+1)
		out[0] = frameZstd
		out = c.encoder.EncodeAll(data, out)
		if len(out) < len(data)+1 {
			return out
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, frameRaw)
	return append(out, data...)
}

func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCorrupt
	}
	switch data[0] {
	case frameRaw:
		return data[1:], nil
	case frameZstd:
		out, err := c.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown frame %#x", ErrCorrupt, data[0])
	}
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
