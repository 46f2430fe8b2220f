package imgfmt

import (
	"bytes"
	"strings"
)

// Format identifies a supported tile image encoding.
type Format int

const (
	PNG Format = iota
	JPEG
)

var (
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return "png"
}

func (f Format) String() string {
	if f == JPEG {
		return "jpeg"
	}
	return "png"
}

// Classify determines the image format of a tile. An advertised content type
// that unambiguously names JPEG or PNG is trusted; otherwise the byte
// signature decides. Unrecognized data classifies as PNG rather than failing.
func Classify(data []byte, advertised string) Format {
	if f, ok := fromContentType(advertised); ok {
		return f
	}
	if bytes.HasPrefix(data, jpegSignature) {
		return JPEG
	}
	if bytes.HasPrefix(data, pngSignature) {
		return PNG
	}
	return PNG
}

func fromContentType(advertised string) (Format, bool) {
	mediaType := advertised
	if idx := strings.Index(mediaType, ";"); idx != -1 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case strings.Contains(mediaType, "jpeg"), strings.Contains(mediaType, "jpg"):
		return JPEG, true
	case strings.Contains(mediaType, "png"):
		return PNG, true
	default:
		return 0, false
	}
}
