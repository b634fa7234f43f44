package pgm

import (
	"bufio"
	"fmt"
	"io"
)

// Header describes the geometry of a PGM image.
type Header struct {
	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int

	// MaxValue is the largest sample value the body may contain (<= 255).
	MaxValue int

	// Raw selects the binary (P5) encoding rather than plain text (P2).
	Raw bool
}

// FormatError reports a malformed PGM header or body.
type FormatError string

func (e FormatError) Error() string { return "pgm: " + string(e) }

// ReadHeader parses a PGM header from r, leaving r positioned at the
// first byte of pixel data.
//
// The reader must be the same one later handed to ReadPixels: the single
// whitespace byte separating header and body has already been consumed
// when ReadHeader returns.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	var magic [2]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, FormatError("missing magic number")
	}

	h := &Header{}
	switch string(magic[:]) {
	case "P5":
		h.Raw = true
	case "P2":
		h.Raw = false
	default:
		return nil, FormatError(fmt.Sprintf("bad magic number %q", magic))
	}

	fields := []*int{&h.Width, &h.Height, &h.MaxValue}
	for _, f := range fields {
		n, err := readInt(r)
		if err != nil {
			return nil, err
		}
		*f = n
	}

	if h.Width <= 0 || h.Height <= 0 {
		return nil, FormatError(fmt.Sprintf("bad dimensions %dx%d", h.Width, h.Height))
	}
	if h.MaxValue <= 0 || h.MaxValue > 255 {
		return nil, FormatError(fmt.Sprintf("unsupported max value %d", h.MaxValue))
	}

	return h, nil
}

// ReadPixels reads the pixel data described by h from r.
//
// The returned buffer holds h.Width*h.Height samples in row-major order,
// top row first.
func ReadPixels(r *bufio.Reader, h *Header) ([]uint8, error) {
	pix := make([]uint8, h.Width*h.Height)

	if h.Raw {
		if _, err := io.ReadFull(r, pix); err != nil {
			return nil, FormatError("truncated pixel data")
		}
		return pix, nil
	}

	for i := range pix {
		n, err := readInt(r)
		if err != nil {
			return nil, FormatError("truncated pixel data")
		}
		if n < 0 || n > h.MaxValue {
			return nil, FormatError(fmt.Sprintf("sample %d out of range", n))
		}
		pix[i] = uint8(n)
	}
	return pix, nil
}

// Decode reads a complete PGM image from r.
func Decode(r io.Reader) (*Header, []uint8, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, nil, err
	}
	pix, err := ReadPixels(br, h)
	if err != nil {
		return nil, nil, err
	}
	return h, pix, nil
}

// Write emits a raw (P5) PGM image to w.
//
// The pix buffer must hold exactly h.Width*h.Height samples.
func Write(w io.Writer, h *Header, pix []uint8) error {
	if len(pix) != h.Width*h.Height {
		return FormatError(fmt.Sprintf("pixel buffer is %d samples, header wants %d",
			len(pix), h.Width*h.Height))
	}

	if _, err := fmt.Fprintf(w, "P5\n%d %d\n%d\n", h.Width, h.Height, h.MaxValue); err != nil {
		return fmt.Errorf("failed to write PGM header: %w", err)
	}
	if _, err := w.Write(pix); err != nil {
		return fmt.Errorf("failed to write PGM pixels: %w", err)
	}
	return nil
}

// readInt skips whitespace and '#' comments, then parses one decimal
// integer. A single whitespace byte after the number is consumed, which
// matches the PGM convention for the header/body separator.
func readInt(r *bufio.Reader) (int, error) {
	c, err := skipSpace(r)
	if err != nil {
		return 0, FormatError("truncated header")
	}

	if c < '0' || c > '9' {
		return 0, FormatError(fmt.Sprintf("expected digit, found %q", c))
	}

	n := 0
	for c >= '0' && c <= '9' {
		n = n*10 + int(c-'0')
		c, err = r.ReadByte()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}

	if !isSpace(c) {
		return 0, FormatError(fmt.Sprintf("expected whitespace after number, found %q", c))
	}
	return n, nil
}

// skipSpace consumes whitespace and comment lines, returning the first
// significant byte.
func skipSpace(r *bufio.Reader) (byte, error) {
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if isSpace(c) {
			continue
		}
		if c == '#' {
			if _, err := r.ReadString('\n'); err != nil {
				return 0, err
			}
			continue
		}
		return c, nil
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
