package folio

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	ogWidth   = 1200
	ogHeight  = 630
	ogPadding = 64
)

var (
	ogBackground = color.RGBA{0x0b, 0x12, 0x20, 0xff}
	ogAccent     = color.RGBA{0x38, 0xbd, 0xf8, 0xff}
	ogMuted      = color.RGBA{0xc8, 0xd0, 0xdc, 0xff}
)

// OGCard is the content of an Open Graph image.
type OGCard struct {
	Title    string
	Subtitle string
	Tags     []string
	Footer   string
}

// RenderOGImage draws card as a 1200x630 PNG. Glyphs come from a bitmap
// font scaled up, so runes outside its range are left out.
func RenderOGImage(w io.Writer, card OGCard) error {
	img := image.NewRGBA(image.Rect(0, 0, ogWidth, ogHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(ogBackground), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, ogWidth, 12), image.NewUniform(ogAccent), image.Point{}, draw.Src)

	y := ogPadding + 24
	y = drawLines(img, wrapText(card.Title, columnsAt(6), 3), ogPadding, y, 6, color.White)
	if card.Subtitle != "" {
		y = drawLines(img, wrapText(card.Subtitle, columnsAt(3), 3), ogPadding, y+24, 3, ogMuted)
	}
	if len(card.Tags) > 0 {
		tags := "#" + strings.Join(card.Tags, "  #")
		drawLines(img, wrapText(tags, columnsAt(3), 1), ogPadding, y+24, 3, ogAccent)
	}
	if card.Footer != "" {
		drawText(img, card.Footer, ogPadding, ogHeight-ogPadding-13*3, 3, ogMuted)
	}
	return png.Encode(w, img)
}

// columnsAt is how many glyphs fit in one padded line at scale.
func columnsAt(scale int) int {
	return (ogWidth - 2*ogPadding) / (basicfont.Face7x13.Advance * scale)
}

func drawLines(dst draw.Image, lines []string, x, y, scale int, col color.Color) int {
	lineHeight := (basicfont.Face7x13.Height + 4) * scale
	for _, line := range lines {
		drawText(dst, line, x, y, scale, col)
		y += lineHeight
	}
	return y
}

// drawText renders s at its natural size and scales it onto dst at (x, y).
func drawText(dst draw.Image, s string, x, y, scale int, col color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	if width == 0 {
		return
	}
	src := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)
	r := image.Rect(x, y, x+width*scale, y+face.Height*scale)
	draw.NearestNeighbor.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
}

// wrapText breaks s into at most maxLines lines of cols runes, splitting on
// spaces where possible. Overflow is marked with "...".
func wrapText(s string, cols, maxLines int) []string {
	var lines []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > cols {
			flush()
			lines = append(lines, string(w[:cols]))
			w = w[cols:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= cols:
			cur = append(append(cur, ' '), w...)
		default:
			flush()
			cur = append(cur, w...)
		}
	}
	flush()

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		if len(last) > cols-3 {
			last = last[:cols-3]
		}
		lines[maxLines-1] = string(last) + "..."
	}
	return lines
}
