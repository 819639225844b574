package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type cell struct {
	r  rune
	fg lipgloss.Color
}

// Canvas is a grid of colored runes. Runs of the same color are rendered
// with one style.
type Canvas struct {
	w, h  int
	cells []cell
}

// NewCanvas returns a w by h canvas filled with r
func NewCanvas(w, h int, r rune, fg lipgloss.Color) *Canvas {
	c := &Canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i] = cell{r: r, fg: fg}
	}
	return c
}

// Set writes one cell; out of range writes are dropped
func (c *Canvas) Set(x, y int, r rune, fg lipgloss.Color) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{r: r, fg: fg}
}

// Span writes cells x0 <= x < x1 on row y
func (c *Canvas) Span(x0, x1, y int, r rune, fg lipgloss.Color) {
	for x := x0; x < x1; x++ {
		c.Set(x, y, r, fg)
	}
}

// At returns the rune at x, y
func (c *Canvas) At(x, y int) rune {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// Lines renders every row
func (c *Canvas) Lines() []string {
	lines := make([]string, c.h)
	for y := 0; y < c.h; y++ {
		var line, run strings.Builder
		row := c.cells[y*c.w : (y+1)*c.w]
		for x, cl := range row {
			if x > 0 && cl.fg != row[x-1].fg {
				line.WriteString(render(row[x-1].fg, run.String()))
				run.Reset()
			}
			run.WriteRune(cl.r)
		}
		if c.w > 0 {
			line.WriteString(render(row[c.w-1].fg, run.String()))
		}
		lines[y] = line.String()
	}
	return lines
}

func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

func render(fg lipgloss.Color, s string) string {
	if fg == "" {
		return s
	}
	return lipgloss.NewStyle().Foreground(fg).Render(s)
}
