package render

import (
	"bytes"
	"fmt"
	"image"

	svg "github.com/ajstarks/svgo"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// iconSet holds the chrome icons rasterized at one size.
type iconSet struct {
	prev      *image.RGBA
	next      *image.RGBA
	enqueue   *image.RGBA
	hourglass *image.RGBA
}

func newIconSet(size int) (*iconSet, error) {
	set := &iconSet{}
	for _, it := range []struct {
		name string
		src  []byte
		dst  **image.RGBA
	}{
		{"prev", arrowSVG(size, true), &set.prev},
		{"next", arrowSVG(size, false), &set.next},
		{"enqueue", enqueueSVG(size), &set.enqueue},
		{"hourglass", hourglassSVG(size), &set.hourglass},
	} {
		img, err := rasterize(it.src, size)
		if err != nil {
			return nil, fmt.Errorf("icon %s: %w", it.name, err)
		}
		*it.dst = img
	}
	return set, nil
}

func arrowSVG(size int, left bool) []byte {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(size, size)
	m := size / 5
	mid := size / 2
	if left {
		canvas.Polygon(
			[]int{m, mid, mid, size - m, size - m, mid, mid},
			[]int{mid, m, mid - m/2, mid - m/2, mid + m/2, mid + m/2, size - m},
			"fill:black")
	} else {
		canvas.Polygon(
			[]int{size - m, mid, mid, m, m, mid, mid},
			[]int{mid, m, mid - m/2, mid - m/2, mid + m/2, mid + m/2, size - m},
			"fill:black")
	}
	canvas.End()
	return buf.Bytes()
}

func enqueueSVG(size int) []byte {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(size, size)
	m := size / 8
	canvas.Roundrect(m, m, size-2*m, size-2*m, m, m, "fill:white;stroke:black;stroke-width:3")
	bar := size / 10
	arm := size/2 - 2*m
	mid := size / 2
	canvas.Rect(mid-arm, mid-bar/2, 2*arm, bar, "fill:black")
	canvas.Rect(mid-bar/2, mid-arm, bar, 2*arm, "fill:black")
	canvas.End()
	return buf.Bytes()
}

func hourglassSVG(size int) []byte {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(size, size)
	m := size / 6
	mid := size / 2
	canvas.Rect(m, m-2, size-2*m, 3, "fill:black")
	canvas.Rect(m, size-m-1, size-2*m, 3, "fill:black")
	canvas.Polygon([]int{m + 2, size - m - 2, mid}, []int{m, m, mid}, "fill:black")
	canvas.Polygon([]int{mid, size - m - 2, m + 2}, []int{mid, size - m, size - m}, "fill:none;stroke:black;stroke-width:2")
	canvas.End()
	return buf.Bytes()
}

func rasterize(svgData []byte, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)
	icon.Draw(dasher, 1.0)
	return img, nil
}
