package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const minCellWidth = 6

// RenderOptions tune the text grid.
type RenderOptions struct {
	// CellWidth is the width of one day column; values below 6 are raised.
	CellWidth int
	// Marks flags Gregorian days, e.g. days with events, with a trailing "*".
	Marks map[int]bool
}

// Render writes m as a Sunday-first text grid. Each cell shows
// "<gregorian>/<hijri>".
func Render(w io.Writer, m Month, opts RenderOptions) error {
	width := opts.CellWidth
	if width < minCellWidth {
		width = minCellWidth
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s  (%s)\n", m.View, m.HijriSpan())

	for _, name := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		fmt.Fprintf(bw, "%-*s", width, name)
	}
	bw.WriteString("\n")

	col := 0
	for ; col < m.Leading; col++ {
		bw.WriteString(strings.Repeat(" ", width))
	}
	for _, c := range m.Cells {
		label := strconv.Itoa(c.Day) + "/" + strconv.Itoa(c.Hijri.Day)
		if opts.Marks[c.Day] {
			label += "*"
		}
		fmt.Fprintf(bw, "%-*s", width, label)
		col++
		if col%7 == 0 {
			bw.WriteString("\n")
		}
	}
	if col%7 != 0 {
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
