// Package watermark renders the branded preview shown in the public catalog.
package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUndecodableImage is returned when the source is not an image in a supported format.
var ErrUndecodableImage = errors.New("undecodable_image")

const (
	Size        = 1600
	Mark        = "ELYMAND"
	jpegQuality = 95

	angleDeg   = -35.0
	stepX      = 450
	stepY      = 350
	gridExtent = Size * 5 / 2
	textHeight = 65.0
	maxPixels  = 100_000_000
)

var (
	strokeColor = color.NRGBA{R: 0, G: 0, B: 0, A: 38}
	fillColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 64}
)

// PreviewName is the file name a watermarked preview is uploaded under.
func PreviewName(name string) string {
	return "wm_" + name + ".jpg"
}

// Apply decodes src, fills a square white canvas with it and tiles the brand mark
// diagonally across the result. The output is a JPEG and is identical for identical input.
func Apply(src io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", ErrUndecodableImage, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, coverRect(img.Bounds()), img, img.Bounds(), draw.Over, nil)
	tileMark(canvas)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out.Bytes(), nil
}

// coverRect scales b to cover the canvas and centres it.
func coverRect(b image.Rectangle) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := math.Max(Size/w, Size/h)
	sw, sh := w*scale, h*scale
	x := (Size - sw) / 2
	y := (Size - sh) / 2
	return image.Rect(
		int(math.Floor(x)), int(math.Floor(y)),
		int(math.Ceil(x+sw)), int(math.Ceil(y+sh)),
	)
}

// stamp is the rasterized mark: a fill layer, its one pixel outline and the text
// origin (left end of the baseline) in stamp coordinates.
type stamp struct {
	fill, stroke *image.NRGBA
	origin       image.Point
	width        int
	ascent       int
	height       int
}

func newStamp() stamp {
	face := basicfont.Face7x13
	const pad = 2
	width := font.MeasureString(face, Mark).Ceil() + 1
	metrics := face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	bounds := image.Rect(0, 0, width+2*pad, ascent+descent+2*pad)
	origin := image.Pt(pad, pad+ascent)

	mask := image.NewAlpha(bounds)
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: fixed.P(origin.X, origin.Y)}
	d.DrawString(Mark)
	// Faux bold: widen every stroke by one pixel.
	bold := image.NewAlpha(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mask.AlphaAt(x, y).A > 0 || mask.AlphaAt(x-1, y).A > 0 {
				bold.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}

	s := stamp{
		fill:   image.NewNRGBA(bounds),
		stroke: image.NewNRGBA(bounds),
		origin: origin,
		width:  width,
		ascent: ascent,
		height: ascent + descent,
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			switch {
			case bold.AlphaAt(x, y).A > 0:
				s.fill.SetNRGBA(x, y, fillColor)
			case touches(bold, x, y):
				s.stroke.SetNRGBA(x, y, strokeColor)
			}
		}
	}
	return s
}

// touches reports whether any 8-neighbour of (x, y) is set.
func touches(m *image.Alpha, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && m.AlphaAt(x+dx, y+dy).A > 0 {
				return true
			}
		}
	}
	return false
}

// tileMark draws the mark on a grid laid out in a frame rotated about the canvas
// centre, with the grid origin shifted to (-Size, -Size) so the rotated grid
// covers every corner. Each mark is centred horizontally on its grid point and
// sits on it as a baseline.
func tileMark(dst draw.Image) {
	s := newStamp()
	k := textHeight / float64(s.height)
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	half := float64(Size) / 2
	textWidth := k * float64(s.width)
	opts := &draw.Options{}

	for ix := 0; ix < gridExtent; ix += stepX {
		for iy := 0; iy < gridExtent; iy += stepY {
			// Stamp pixel (sx, sy) lands at p = k*(sx, sy) + (ox, oy) in the grid frame.
			ox := float64(ix) - textWidth/2 - k*float64(s.origin.X) - Size
			oy := float64(iy) - k*float64(s.origin.Y) - Size
			m := f64.Aff3{
				k * cos, -k * sin, half + cos*ox - sin*oy,
				k * sin, k * cos, half + sin*ox + cos*oy,
			}
			draw.ApproxBiLinear.Transform(dst, m, s.stroke, s.stroke.Bounds(), draw.Over, opts)
			draw.ApproxBiLinear.Transform(dst, m, s.fill, s.fill.Bounds(), draw.Over, opts)
		}
	}
}
