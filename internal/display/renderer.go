// Package display turns the automaton into pictures and gets them to
// browsers: rendering, the tick loop that drives the engine, and the
// websocket hub.
package display

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/transform"

	"github.com/satindergrewal/soundscape/internal/life"
	"github.com/satindergrewal/soundscape/internal/palette"
)

// Renderer draws one pixel per cell and scales the result up by the cell
// size. It reuses its buffers, so one goroutine must own it.
type Renderer struct {
	palette  *palette.Palette
	cellSize int
	maxAge   uint8

	img *image.RGBA
	buf bytes.Buffer
	enc png.Encoder
}

// NewRenderer returns a renderer for cells of cellSize pixels.
func NewRenderer(p *palette.Palette, cellSize int) *Renderer {
	return &Renderer{
		palette:  p,
		cellSize: max(cellSize, 1),
		maxAge:   life.MaxAge,
		enc:      png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Palette returns the palette used for drawing.
func (r *Renderer) Palette() *palette.Palette { return r.palette }

// CellSize returns pixels per cell edge.
func (r *Renderer) CellSize() int { return r.cellSize }

// Draw copies g into the cell-resolution image. Call it inside Engine.View;
// it does no I/O.
func (r *Renderer) Draw(g life.Grid) *image.RGBA {
	w, h := g.Width(), g.Height()
	if r.img == nil || r.img.Rect.Dx() != w || r.img.Rect.Dy() != h {
		r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	bg := r.palette.Background()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bg
			if g.Alive(x, y) {
				c = r.palette.CellColor(max(g.Age(x, y), 1), r.maxAge)
			}
			i := r.img.PixOffset(x, y)
			r.img.Pix[i+0] = c.R
			r.img.Pix[i+1] = c.G
			r.img.Pix[i+2] = c.B
			r.img.Pix[i+3] = c.A
		}
	}
	return r.img
}

// Encode scales the last drawn image and returns it as PNG. The returned
// slice is freshly allocated.
func (r *Renderer) Encode() ([]byte, error) {
	if r.img == nil {
		return nil, fmt.Errorf("render: nothing drawn")
	}
	var out image.Image = r.img
	if r.cellSize > 1 {
		b := r.img.Bounds()
		out = transform.Resize(r.img, b.Dx()*r.cellSize, b.Dy()*r.cellSize, transform.NearestNeighbor)
	}
	r.buf.Reset()
	if err := r.enc.Encode(&r.buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return bytes.Clone(r.buf.Bytes()), nil
}

// Render draws the engine's current generation under its read lock and
// encodes it after the lock is released.
func (r *Renderer) Render(e *life.Engine) ([]byte, error) {
	e.View(func(g life.Grid) { r.Draw(g) })
	return r.Encode()
}
