package chem

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// Renderer draws candidate depiction cards as PNG images.  Without a full
// coordinate-generation engine the card shows the notation, the descriptor
// table and a schematic glyph; identical candidates render identical bytes.
type Renderer struct {
	width  int
	height int
}

// NewRenderer constructs a renderer with the given canvas size in pixels.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &Renderer{width: width, height: height}
}

// RenderCandidate draws the depiction card for one candidate.
func (r *Renderer) RenderCandidate(c *molecule.Candidate) ([]byte, error) {
	dc := gg.NewContext(r.width, r.height)
	dc.SetFontFace(basicfont.Face7x13)

	// Background and frame.
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(2)
	dc.DrawRectangle(8, 8, float64(r.width)-16, float64(r.height)-16)
	dc.Stroke()

	w := float64(r.width)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(c.Name, w/2, 36, 0.5, 0.5)
	dc.DrawStringAnchored(c.SMILES, w/2, 58, 0.5, 0.5)

	r.drawGlyph(dc, c)

	p := c.Properties
	lines := []string{
		fmt.Sprintf("MW %.2f", p.MolecularWeight),
		fmt.Sprintf("heavy atoms %d  rings %d", p.HeavyAtoms, p.RingCount),
		fmt.Sprintf("HBD %d  HBA %d  logP %.1f", p.HBondDonors, p.HBondAcceptors, p.LogP),
		fmt.Sprintf("rule of five: %v", p.RuleOfFivePass),
	}
	y := float64(r.height) - 90
	for _, line := range lines {
		dc.DrawStringAnchored(line, w/2, y, 0.5, 0.5)
		y += 18
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDepictionFailed,
			"failed to encode depiction")
	}
	return buf.Bytes(), nil
}

// drawGlyph draws a schematic structural motif: a hexagon per ring plus a
// zigzag chain for the remaining heavy atoms.
func (r *Renderer) drawGlyph(dc *gg.Context, c *molecule.Candidate) {
	cx := float64(r.width) / 2
	cy := float64(r.height)/2 - 20
	dc.SetLineWidth(2)
	dc.SetRGB(0.1, 0.1, 0.4)

	rings := c.Properties.RingCount
	if rings > 4 {
		rings = 4
	}
	radius := 42.0
	startX := cx - float64(rings-1)*radius*0.9
	for i := 0; i < rings; i++ {
		hx := startX + float64(i)*radius*1.8
		for k := 0; k < 6; k++ {
			a1 := math.Pi/6 + float64(k)*math.Pi/3
			a2 := math.Pi/6 + float64(k+1)*math.Pi/3
			dc.DrawLine(
				hx+radius*math.Cos(a1), cy+radius*math.Sin(a1),
				hx+radius*math.Cos(a2), cy+radius*math.Sin(a2))
		}
		dc.Stroke()
	}

	chain := c.Properties.HeavyAtoms - rings*6
	if chain < 2 {
		return
	}
	if chain > 12 {
		chain = 12
	}
	step := 24.0
	x := cx - float64(chain-1)*step/2
	baseY := cy + radius + 40
	zig := func(i int) float64 {
		if i%2 == 1 {
			return baseY - 14
		}
		return baseY
	}
	for i := 0; i < chain-1; i++ {
		dc.DrawLine(x, zig(i), x+step, zig(i+1))
		x += step
	}
	dc.Stroke()
}
