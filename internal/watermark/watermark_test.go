package watermark_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"storefront/internal/watermark"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestApply(t *testing.T) {
	red := color.RGBA{R: 200, A: 255}

	t.Run("produces a square jpeg", func(t *testing.T) {
		out, err := watermark.Apply(bytes.NewReader(solidPNG(t, 200, 100, red)))
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, watermark.Size, watermark.Size), img.Bounds())
	})

	t.Run("source covers the whole canvas", func(t *testing.T) {
		out, err := watermark.Apply(bytes.NewReader(solidPNG(t, 300, 40, red)))
		require.NoError(t, err)
		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		last := watermark.Size - 3
		for _, p := range []image.Point{{2, 2}, {last, 2}, {2, last}, {last, last}} {
			_, _, b, _ := img.At(p.X, p.Y).RGBA()
			assert.Less(t, b>>8, uint32(120), "white background visible at %v", p)
		}
	})

	t.Run("mark is drawn", func(t *testing.T) {
		out, err := watermark.Apply(bytes.NewReader(solidPNG(t, 64, 64, red)))
		require.NoError(t, err)
		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		var maxG uint32
		for y := 0; y < watermark.Size; y += 2 {
			for x := 0; x < watermark.Size; x += 2 {
				_, g, _, _ := img.At(x, y).RGBA()
				maxG = max(maxG, g>>8)
			}
		}
		assert.Greater(t, maxG, uint32(25))
	})

	t.Run("deterministic", func(t *testing.T) {
		src := solidPNG(t, 120, 90, color.RGBA{G: 120, B: 200, A: 255})
		a, err := watermark.Apply(bytes.NewReader(src))
		require.NoError(t, err)
		b, err := watermark.Apply(bytes.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("undecodable input", func(t *testing.T) {
		_, err := watermark.Apply(strings.NewReader("definitely not an image"))
		assert.ErrorIs(t, err, watermark.ErrUndecodableImage)

		_, err = watermark.Apply(bytes.NewReader(nil))
		assert.ErrorIs(t, err, watermark.ErrUndecodableImage)
	})
}

func TestPreviewName(t *testing.T) {
	assert.Equal(t, "wm_floral.png.jpg", watermark.PreviewName("floral.png"))
}
