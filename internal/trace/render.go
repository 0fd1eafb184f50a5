package trace

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

const (
	sgrBold   = "\x1b[1m"
	sgrRed    = "\x1b[31m"
	sgrGreen  = "\x1b[32m"
	sgrYellow = "\x1b[33m"
	sgrBlue   = "\x1b[34m"
	sgrFaint  = "\x1b[2m"
)

var kindStyle = map[string]string{
	"claim":        sgrBlue,
	"complete":     sgrGreen,
	"dispatch":     sgrBold,
	"return":       sgrFaint,
	KindHandler:    sgrYellow,
	"spurious":     sgrBold + sgrRed,
	"unregistered": sgrBold + sgrRed,
	KindFault:      sgrRed,
}

func styled(style, s string) string {
	if style == "" {
		return s
	}
	return style + s + ansi.ResetStyle
}

// IsTerminal reports whether w is a terminal that should get colour.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Render writes one line per entry. Colour is stripped unless color is set.
func Render(w io.Writer, entries []Entry, color bool) error {
	width := 0
	for _, e := range entries {
		width = max(width, ansi.StringWidth(e.Controller))
	}

	for _, e := range entries {
		mode := "level"
		if e.Edge {
			mode = "edge"
		}
		line := fmt.Sprintf("%6d  %s  %s %s",
			e.Seq,
			pad(styled(sgrFaint, e.Controller), width),
			pad(styled(kindStyle[e.Kind], e.Kind), 12),
			e.Short()[len(e.Kind):])
		if e.Kind != KindHandler && e.Kind != KindFault && e.Source != 0 {
			line += " " + styled(sgrFaint, mode)
		}
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		if !color {
			line = ansi.Strip(line)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// pad right-pads s to width visible cells.
func pad(s string, width int) string {
	if n := ansi.StringWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
