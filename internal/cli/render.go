package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

const panelWidth = 60

var (
	agentColor = color.New(color.FgMagenta, color.Bold)
	dimColor   = color.New(color.Faint)
	userColor  = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	infoColor  = color.New(color.FgCyan)
)

// panel draws body inside a left-ruled box with title and optional subtitle.
func panel(w io.Writer, c *color.Color, title, subtitle, body string) {
	top := "╭─ " + title + " "
	c.Fprintln(w, top+strings.Repeat("─", max(panelWidth-runeLen(top), 3)))
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		c.Fprint(w, "│ ")
		fmt.Fprintln(w, line)
	}
	bottom := "╰─"
	if subtitle != "" {
		bottom += " " + subtitle + " "
	}
	c.Fprintln(w, bottom+strings.Repeat("─", max(panelWidth-runeLen(bottom), 3)))
}

func runeLen(s string) int {
	return len([]rune(s))
}

// renderTurn prints the agent's answer and, when a tool ran, its output.
func renderTurn(w io.Writer, turn *v1alpha1.Turn, verbose bool) {
	if verbose && turn.RawToolRequest != "" {
		dimColor.Fprintf(w, "Tool request: %s\n", turn.RawToolRequest)
	}
	subtitle := ""
	if turn.ToolUsed != "" {
		subtitle = "tool: " + turn.ToolUsed
	}
	panel(w, agentColor, turn.Agent+" agent", subtitle, turn.Text)
	if turn.ToolOutput != "" {
		panel(w, dimColor, fmt.Sprintf("Tool output (%s)", turn.ToolUsed), "", turn.ToolOutput)
	}
}
