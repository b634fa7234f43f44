package pgm

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode_Raw(t *testing.T) {
	data := []byte("P5\n# a comment\n3 2\n255\n\x00\x7f\xff\x01\x02\x03")

	h, pix, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if h.Width != 3 || h.Height != 2 {
		t.Errorf("dimensions: got %dx%d, want 3x2", h.Width, h.Height)
	}
	if h.MaxValue != 255 {
		t.Errorf("MaxValue: got %d, want 255", h.MaxValue)
	}
	if !h.Raw {
		t.Error("Raw: got false, want true")
	}

	want := []uint8{0, 127, 255, 1, 2, 3}
	for i, v := range want {
		if pix[i] != v {
			t.Errorf("pix[%d]: got %d, want %d", i, pix[i], v)
		}
	}
}

func TestDecode_Plain(t *testing.T) {
	data := []byte("P2\n2 2\n255\n0 10\n20 30\n")

	h, pix, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if h.Raw {
		t.Error("Raw: got true, want false")
	}
	want := []uint8{0, 10, 20, 30}
	for i, v := range want {
		if pix[i] != v {
			t.Errorf("pix[%d]: got %d, want %d", i, pix[i], v)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad magic", "P6\n2 2\n255\n\x00\x00\x00\x00"},
		{"empty", ""},
		{"zero width", "P5\n0 2\n255\n"},
		{"max value too large", "P5\n2 2\n65535\n\x00\x00\x00\x00"},
		{"truncated raw body", "P5\n2 2\n255\n\x00\x00"},
		{"truncated plain body", "P2\n2 2\n255\n0 1 2"},
		{"sample out of range", "P2\n2 2\n100\n0 1 2 200\n"},
		{"junk in header", "P5\nab 2\n255\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(bytes.NewReader([]byte(tt.data)))
			if err == nil {
				t.Fatal("Decode succeeded, want error")
			}
			var ferr FormatError
			if !errors.As(err, &ferr) {
				t.Errorf("error type: got %T, want FormatError", err)
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	h := &Header{Width: 4, Height: 3, MaxValue: 255, Raw: true}
	pix := make([]uint8, 12)
	for i := range pix {
		pix[i] = uint8(i * 20)
	}

	var buf bytes.Buffer
	if err := Write(&buf, h, pix); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, gotPix, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode of written image failed: %v", err)
	}
	if got.Width != h.Width || got.Height != h.Height || got.MaxValue != h.MaxValue {
		t.Errorf("header: got %+v, want %+v", got, h)
	}
	for i := range pix {
		if gotPix[i] != pix[i] {
			t.Errorf("pix[%d]: got %d, want %d", i, gotPix[i], pix[i])
		}
	}
}

func TestWrite_BufferMismatch(t *testing.T) {
	h := &Header{Width: 4, Height: 3, MaxValue: 255, Raw: true}

	var buf bytes.Buffer
	err := Write(&buf, h, make([]uint8, 5))
	if err == nil {
		t.Fatal("Write succeeded with short buffer, want error")
	}
}

func TestDecode_CommentsAndWhitespace(t *testing.T) {
	data := []byte("P2 # magic\n# width and height\n 2\t2 \r\n255 0 1 2 3")

	h, pix, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if h.Width != 2 || h.Height != 2 {
		t.Errorf("dimensions: got %dx%d, want 2x2", h.Width, h.Height)
	}
	if pix[3] != 3 {
		t.Errorf("pix[3]: got %d, want 3", pix[3])
	}
}
