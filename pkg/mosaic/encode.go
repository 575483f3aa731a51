package mosaic

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/tiff"
)

type Format string

const (
	FormatPNG  = Format("png")
	FormatJPEG = Format("jpeg")
	FormatTIFF = Format("tiff")
	FormatWebP = Format("webp")

	DefaultQuality = 90
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func (f Format) ContentType() string {
	return "image/" + string(f)
}

type EncodeOptions struct {
	// Quality is used by JPEG and lossy WebP, 1-100.
	Quality int
	// Lossless selects lossless WebP.
	Lossless bool
}

func Encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return fmt.Errorf("couldn't encode %s image: %w", format, err)
	}

	return nil
}
