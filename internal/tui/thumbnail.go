package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// RenderThumbnail draws img into a cols x rows block of half-block cells. Each
// cell carries two vertically stacked pixels: the upper one as foreground and
// the lower one as background. The image is letterboxed to keep its aspect.
func RenderThumbnail(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	src := img.Bounds()
	if src.Dx() == 0 || src.Dy() == 0 {
		return ""
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(dst, fit(src, dst.Bounds()), img, src, draw.Over, nil)

	var b strings.Builder
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := dst.RGBAAt(x, 2*y)
			bottom := dst.RGBAAt(x, 2*y+1)
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		b.WriteString("\x1b[0m")
		if y < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// fit returns the largest rectangle inside box with the aspect ratio of src,
// centered in box.
func fit(src, box image.Rectangle) image.Rectangle {
	w, h := box.Dx(), box.Dy()
	if src.Dx()*h > src.Dy()*w {
		h = max(1, src.Dy()*w/src.Dx())
	} else {
		w = max(1, src.Dx()*h/src.Dy())
	}
	x0 := box.Min.X + (box.Dx()-w)/2
	y0 := box.Min.Y + (box.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}
