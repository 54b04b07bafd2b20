package compression

import (
	"bytes"
	"errors"
	"testing"
)

func TestCompressor_RoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte("console.log('hello');\n"), 200)

	tests := []struct {
		name    string
		enabled bool
		data    []byte
		shrinks bool
	}{
		{"enabled large", true, big, true},
		{"enabled small stays raw", true, []byte("tiny"), false},
		{"disabled large stays raw", false, big, false},
		{"empty", true, []byte{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompressor(2, tt.enabled)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = c.Close() }()

			packed := c.Compress(tt.data)
			if tt.shrinks && len(packed) >= len(tt.data) {
				t.Errorf("expected compression, got %d >= %d bytes", len(packed), len(tt.data))
			}
			if !tt.shrinks && len(packed) != len(tt.data)+1 {
				t.Errorf("expected raw frame of %d bytes, got %d", len(tt.data)+1, len(packed))
			}

			got, err := c.Decompress(packed)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Error("round trip changed payload")
			}
		})
	}
}

func TestCompressor_DisabledReadsCompressed(t *testing.T) {
	enabled, err := NewCompressor(3, true)
	if err != nil {
		t.Fatal(err)
	}
	disabled, err := NewCompressor(0, false)
	if err != nil {
		t.Fatal(err)
	}

	data := bytes.Repeat([]byte("body{margin:0}"), 100)
	got, err := disabled.Decompress(enabled.Compress(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("disabled compressor failed to read zstd frame")
	}
}

func TestCompressor_Corrupt(t *testing.T) {
	c, err := NewCompressor(1, true)
	if err != nil {
		t.Fatal(err)
	}

	for _, in := range [][]byte{nil, {9, 1, 2}, {frameZstd, 1, 2, 3}} {
		if _, err := c.Decompress(in); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Decompress(%v) = %v, want ErrCorrupt", in, err)
		}
	}
}
