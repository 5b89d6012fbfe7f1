package display

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	black = color.Black
	white = color.White
	grey  = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
)

type align int

const (
	alignLeft align = iota
	alignCenter
)

var (
	regularFont = mustParse(goregular.TTF)
	boldFont    = mustParse(gobold.TTF)
)

func mustParse(ttf []byte) *opentype.Font {
	f, err := opentype.Parse(ttf)
	if err != nil {
		panic(err)
	}
	return f
}

// canvas is a drawing surface with a small 2D API. Faces are not safe for
// concurrent use, so every canvas owns its own.
type canvas struct {
	img   *image.NRGBA
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

func newCanvas(img *image.NRGBA) *canvas {
	return &canvas{img: img, faces: map[faceKey]font.Face{}}
}

func (c *canvas) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}

func (c *canvas) face(size float64, bold bool) (font.Face, error) {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	src := regularFont
	if bold {
		src = boldFont
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	c.faces[key] = f
	return f, nil
}

func (c *canvas) fillRect(x, y, w, h int, col color.Color) {
	draw.Draw(c.img, image.Rect(x, y, x+w, y+h), image.NewUniform(col), image.Point{}, draw.Src)
}

// strokeRect draws a rectangle outline of the given line width centered on the path.
func (c *canvas) strokeRect(x, y, w, h, lineWidth int, col color.Color) {
	inner := lineWidth / 2
	outer := lineWidth - inner
	c.fillRect(x-outer, y-outer, w+lineWidth, lineWidth, col)
	c.fillRect(x-outer, y+h-outer, w+lineWidth, lineWidth, col)
	c.fillRect(x-outer, y-outer, lineWidth, h+lineWidth, col)
	c.fillRect(x+w-outer, y-outer, lineWidth, h+lineWidth, col)
}

// fillText draws text vertically centered on y.
func (c *canvas) fillText(text string, x, y int, size float64, bold bool, a align, col color.Color) error {
	face, err := c.face(size, bold)
	if err != nil {
		return err
	}

	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	metrics := face.Metrics()
	baseline := fixed.I(y) + (metrics.Ascent-metrics.Descent)/2

	dotX := fixed.I(x)
	if a == alignCenter {
		dotX -= d.MeasureString(text) / 2
	}
	d.Dot = fixed.Point26_6{X: dotX, Y: baseline}
	d.DrawString(text)
	return nil
}
