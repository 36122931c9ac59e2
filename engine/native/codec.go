package native

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/flanksource/transmute/api"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// registers the WebP decoder with image.Decode
	_ "golang.org/x/image/webp"
)

type options struct {
	jpegQuality int
	// svgSize is the longest edge, in pixels, of rasterised SVGs without
	// usable dimensions.
	svgSize int
	maxSize int
}

type decodeFunc func(r io.Reader, o options) (image.Image, error)
type encodeFunc func(w io.Writer, img image.Image, o options) error

type registry struct {
	decoders map[api.Format]decodeFunc
	encoders map[api.Format]encodeFunc
}

func newRegistry() *registry {
	raster := func(r io.Reader, _ options) (image.Image, error) {
		img, _, err := image.Decode(r)
		return img, err
	}
	return &registry{
		decoders: map[api.Format]decodeFunc{
			api.PNG:  raster,
			api.JPEG: raster,
			api.JPG:  raster,
			api.GIF:  raster,
			api.BMP:  raster,
			api.TIFF: raster,
			api.WEBP: raster,
			api.SVG:  rasterizeSVG,
		},
		encoders: map[api.Format]encodeFunc{
			api.PNG: func(w io.Writer, img image.Image, _ options) error {
				return png.Encode(w, img)
			},
			api.JPEG: encodeJPEG,
			api.JPG:  encodeJPEG,
			api.GIF: func(w io.Writer, img image.Image, _ options) error {
				return gif.Encode(w, img, nil)
			},
			api.BMP: func(w io.Writer, img image.Image, _ options) error {
				return bmp.Encode(w, flatten(img))
			},
			api.TIFF: func(w io.Writer, img image.Image, _ options) error {
				return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
			},
		},
	}
}

// selfTest round-trips a one pixel image through every encoder and the
// matching decoder.
func (r *registry) selfTest(o options) error {
	pixel := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pixel.Set(0, 0, color.RGBA{R: 255, A: 255})
	for format, enc := range r.encoders {
		var buf bytes.Buffer
		if err := enc(&buf, pixel, o); err != nil {
			return fmt.Errorf("%s encoder: %w", format, err)
		}
		dec, ok := r.decoders[format]
		if !ok {
			continue
		}
		if _, err := dec(&buf, o); err != nil {
			return fmt.Errorf("%s decoder: %w", format, err)
		}
	}
	return nil
}

func encodeJPEG(w io.Writer, img image.Image, o options) error {
	return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: o.jpegQuality})
}

// flatten composites img onto white for formats without alpha.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

func rasterizeSVG(r io.Reader, o options) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		vw, vh = svgAttributeSize(data)
	}
	w, h := svgDimensions(vw, vh, o)
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return rgba, nil
}

// svgAttributeSize reads the width and height attributes of the root
// element, ignoring unit suffixes. Missing or relative sizes yield zero.
func svgAttributeSize(data []byte) (float64, float64) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var w, h float64
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w = parseLength(attr.Value)
			case "height":
				h = parseLength(attr.Value)
			}
		}
		return w, h
	}
}

func parseLength(s string) float64 {
	s = strings.TrimSpace(s)
	for _, unit := range []string{"px", "pt", "pc", "mm", "cm", "in"} {
		s = strings.TrimSuffix(s, unit)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// svgDimensions keeps the view box aspect ratio, falling back to a square
// of svgSize and clamping the longest edge to maxSize.
func svgDimensions(vw, vh float64, o options) (int, int) {
	if vw <= 0 || vh <= 0 {
		return o.svgSize, o.svgSize
	}
	longest := math.Max(vw, vh)
	scale := 1.0
	if longest > float64(o.maxSize) {
		scale = float64(o.maxSize) / longest
	}
	w := int(math.Round(vw * scale))
	h := int(math.Round(vh * scale))
	return max(w, 1), max(h, 1)
}
