// SPDX-License-Identifier: MIT
package render

import (
	"math"
	"strings"
	"sync"

	"dentvoice/internal/waveform"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Block characters for bar heights (8 levels per row, bottom to top).
// Index 0 = empty (space), 1-8 = increasing fill levels.
const blockChars = " ▁▂▃▄▅▆▇█"

// Terminal is a surface backed by a grid of character cells. Each
// column covers pxPerCol pixels of width and every row holds eight
// vertical levels, so bottom-anchored bars render as block glyphs.
type Terminal struct {
	cols, rows int
	pxPerCol   int
	heightPx   int

	mu     sync.Mutex
	levels []int // per column, 0..rows*8
	colors []colorful.Color
	base   colorful.Color
}

var _ waveform.Surface = (*Terminal)(nil)

// NewTerminal returns a cols x rows grid presenting itself as a surface
// of cols*pxPerCol by heightPx pixels.
func NewTerminal(cols, rows, pxPerCol, heightPx int) *Terminal {
	cols, rows = max(cols, 1), max(rows, 1)
	return &Terminal{
		cols:     cols,
		rows:     rows,
		pxPerCol: max(pxPerCol, 1),
		heightPx: max(heightPx, 1),
		levels:   make([]int, cols),
		colors:   make([]colorful.Color, cols),
		base:     waveform.Background,
	}
}

func (t *Terminal) Width() int  { return t.cols * t.pxPerCol }
func (t *Terminal) Height() int { return t.heightPx }

// Columns and Rows report the grid size.
func (t *Terminal) Columns() int { return t.cols }
func (t *Terminal) Rows() int    { return t.rows }

// Clear empties every cell. Cells cannot hold partial coverage, so any
// alpha clears completely.
func (t *Terminal) Clear(c colorful.Color, alpha float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.levels)
	t.base = c
}

// FillRect raises the level of every column the rectangle touches to the
// rectangle's top edge. Translucent bars are blended toward the
// background color.
func (t *Terminal) FillRect(x, y, w, h float64, c colorful.Color, alpha float64) {
	if w <= 0 || h <= 0 {
		return
	}
	maxLevel := t.rows * 8
	top := max(y, 0)
	level := int(math.Round((float64(t.heightPx) - top) / float64(t.heightPx) * float64(maxLevel)))
	level = min(max(level, 0), maxLevel)
	if level == 0 {
		return
	}

	first := int(math.Floor(x / float64(t.pxPerCol)))
	last := int(math.Ceil((x+w)/float64(t.pxPerCol))) - 1
	first, last = max(first, 0), min(last, t.cols-1)

	t.mu.Lock()
	defer t.mu.Unlock()
	blended := t.base.BlendRgb(c, min(max(alpha, 0), 1))
	for col := first; col <= last; col++ {
		if level >= t.levels[col] {
			t.levels[col] = level
			t.colors[col] = blended
		}
	}
}

// Levels returns a copy of the per-column levels, 0..Rows()*8.
func (t *Terminal) Levels() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.levels...)
}

// String renders the grid top row first, coloring runs of equal color
// with lipgloss.
func (t *Terminal) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	runes := []rune(blockChars)
	var sb strings.Builder
	for row := range t.rows {
		if row > 0 {
			sb.WriteByte('\n')
		}
		base := (t.rows - 1 - row) * 8

		var run strings.Builder
		var runColor colorful.Color
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(runColor.Hex()))
			sb.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for col := range t.cols {
			fill := min(max(t.levels[col]-base, 0), 8)
			if fill > 0 && t.colors[col] != runColor {
				flush()
				runColor = t.colors[col]
			}
			run.WriteRune(runes[fill])
		}
		flush()
	}
	return sb.String()
}
