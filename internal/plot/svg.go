// SPDX-License-Identifier: MIT

package plot

import (
	"fmt"
	"io"
	"strings"
)

const (
	facetWidth   = 220
	facetHeight  = 200
	facetGap     = 16
	facetPerRow  = 5
	marginLeft   = 48
	marginTop    = 56
	marginBottom = 44
	pointRadius  = 2.5
)

// RenderSVG writes the chart as a self-contained SVG document.
func (c *Chart) RenderSVG(w io.Writer) error {
	rows := (len(c.Facets) + facetPerRow - 1) / facetPerRow
	if rows == 0 {
		rows = 1
	}
	cols := len(c.Facets)
	if cols > facetPerRow {
		cols = facetPerRow
	}
	if cols == 0 {
		cols = 1
	}

	width := marginLeft + cols*(facetWidth+facetGap)
	height := marginTop + rows*(facetHeight+facetGap) + marginBottom

	minX, maxX, minY, maxY := c.bounds()

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")
	fmt.Fprintf(&b, `<text x="%d" y="24" font-family="sans-serif" font-size="16">%s</text>`+"\n",
		marginLeft, svgEscape(c.title()))
	fmt.Fprintf(&b, `<text x="%d" y="42" font-family="sans-serif" font-size="11" fill="#555">x: %s, y: %s</text>`+"\n",
		marginLeft, svgEscape(c.XLabel), svgEscape(c.YLabel))

	for i, f := range c.Facets {
		x0 := marginLeft + (i%facetPerRow)*(facetWidth+facetGap)
		y0 := marginTop + (i/facetPerRow)*(facetHeight+facetGap)
		c.renderFacet(&b, f, x0, y0, minX, maxX, minY, maxY)
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Chart) title() string {
	sub := c.Subscale
	if sub != "" {
		sub = strings.ToUpper(sub[:1]) + sub[1:]
	}
	return fmt.Sprintf("NLSY vs CHS %s score by age", sub)
}

// bounds computes shared axis limits across facets with a small pad so
// points on the hull stay visible.
func (c *Chart) bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = 0, 0
	maxX, maxY = 1, 1
	first := true
	for _, f := range c.Facets {
		for _, p := range f.Points {
			if first {
				minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
				first = false
				continue
			}
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
	}
	padX := (maxX - minX) * 0.05
	padY := (maxY - minY) * 0.05
	if padX == 0 {
		padX = 0.5
	}
	if padY == 0 {
		padY = 0.5
	}
	return minX - padX, maxX + padX, minY - padY, maxY + padY
}

func (c *Chart) renderFacet(b *strings.Builder, f Facet, x0, y0 int, minX, maxX, minY, maxY float64) {
	plotW := float64(facetWidth)
	plotH := float64(facetHeight - 20) // leave room for the facet label

	toX := func(v float64) float64 {
		return float64(x0) + (v-minX)/(maxX-minX)*plotW
	}
	toY := func(v float64) float64 {
		return float64(y0) + 20 + plotH - (v-minY)/(maxY-minY)*plotH
	}

	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12">age %d (n=%d)</text>`+"\n",
		x0, y0+12, f.Age, len(f.Points))
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%.0f" fill="none" stroke="#ccc"/>`+"\n",
		x0, y0+20, facetWidth, plotH)

	for _, p := range f.Points {
		fmt.Fprintf(b, `<circle cx="%.2f" cy="%.2f" r="%.1f" fill="#1f77b4" fill-opacity="0.6"/>`+"\n",
			toX(p.X), toY(p.Y), pointRadius)
	}

	if f.Fitted {
		y1 := f.Alpha + f.Beta*minX
		y2 := f.Alpha + f.Beta*maxX
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#d62728" stroke-width="1.5"/>`+"\n",
			toX(minX), clampY(toY(y1), y0), toX(maxX), clampY(toY(y2), y0))
	}
}

// clampY keeps trendline endpoints inside the facet box.
func clampY(y float64, y0 int) float64 {
	top := float64(y0 + 20)
	bottom := float64(y0 + facetHeight)
	if y < top {
		return top
	}
	if y > bottom {
		return bottom
	}
	return y
}

func svgEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
