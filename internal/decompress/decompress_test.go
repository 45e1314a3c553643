package decompress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var sample = []byte(`{"avatar":"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="}`)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close failed: %v", err)
	}
	return buf.Bytes()
}

func flateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("flate write failed: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("flate close failed: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer failed: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"identity", ""},
		{"br", ""},
		{"gzip", "gzip"},
		{"GZIP", "gzip"},
		{"x-gzip", "gzip"},
		{"deflate", "deflate"},
		{"Deflate, chunked", "deflate"},
		{"zstd", "zstd"},
	}
	for _, tt := range tests {
		if got := Encoding(tt.header); got != tt.want {
			t.Errorf("Encoding(%q): got %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		header string
	}{
		{"identity", sample, ""},
		{"unknown encoding passes through", sample, "br"},
		{"gzip", gzipBytes(t, sample), "gzip"},
		{"gzip mixed case", gzipBytes(t, sample), "X-GZip"},
		{"deflate zlib wrapped", zlibBytes(t, sample), "deflate"},
		{"deflate raw", flateBytes(t, sample), "deflate"},
		{"zstd", zstdBytes(t, sample), "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.body, tt.header, Options{})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(got, sample) {
				t.Errorf("Decode returned %q, want %q", got, sample)
			}
		})
	}
}

func TestDecode_Nil(t *testing.T) {
	got, err := Decode(nil, "gzip", Options{})
	if err != nil {
		t.Fatalf("Decode(nil) failed: %v", err)
	}
	if got != nil {
		t.Errorf("Decode(nil) returned %v, want nil", got)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		header string
	}{
		{"gzip header on plain text", []byte("not gzip at all"), "gzip"},
		{"truncated gzip", gzipBytes(t, sample)[:20], "gzip"},
		{"zstd garbage", []byte("definitely not zstd"), "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.body, tt.header, Options{})
			if err == nil {
				t.Fatal("Decode should fail")
			}
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
			if decErr.Encoding != Encoding(tt.header) {
				t.Errorf("Encoding: got %q, want %q", decErr.Encoding, Encoding(tt.header))
			}
		})
	}
}

func TestDecode_InflateCeiling(t *testing.T) {
	big := bytes.Repeat([]byte("A"), 64*1024)
	body := gzipBytes(t, big)

	_, err := Decode(body, "gzip", Options{MaxInflated: 1024})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	got, err := Decode(body, "gzip", Options{MaxInflated: int64(len(big))})
	if err != nil {
		t.Fatalf("Decode at exact limit failed: %v", err)
	}
	if len(got) != len(big) {
		t.Errorf("length: got %d, want %d", len(got), len(big))
	}
}

func TestHasZlibHeader(t *testing.T) {
	if !hasZlibHeader(zlibBytes(t, sample)) {
		t.Error("zlib stream not recognised")
	}
	if hasZlibHeader([]byte{0x78}) {
		t.Error("single byte should not be a zlib header")
	}
	if hasZlibHeader([]byte("GIF89a")) {
		t.Error("GIF header should not be a zlib header")
	}
}
