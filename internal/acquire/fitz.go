package acquire

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// fitzReader wraps go-fitz as a docReader.
type fitzReader struct {
	doc *fitz.Document
}

func openFitz(data []byte) (docReader, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	return &fitzReader{doc: doc}, nil
}

func (r *fitzReader) PageCount() int {
	return r.doc.NumPage()
}

func (r *fitzReader) PageText(n int) (string, error) {
	return r.doc.Text(n)
}

func (r *fitzReader) PageImage(n int) (image.Image, error) {
	return r.doc.Image(n)
}

func (r *fitzReader) Close() error {
	return r.doc.Close()
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG decodes an image payload and re-encodes it as PNG for the
// recognizer. HEIC needs its own decoder; Go's image package does not
// register one.
func imageToPNG(data []byte, contentType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	if isHEIC(data, contentType) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}
	return encodePNG(img)
}

// isHEIC sniffs the ftyp box brands iPhones stamp on HEIC captures.
func isHEIC(data []byte, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(ct, "heic") || strings.Contains(ct, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
