// Package render prints daemon results for people and scripts.
package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/lydakis/dojutsu/internal/ipc"
	"golang.org/x/term"
)

// Options control text output.
type Options struct {
	// Markdown renders stage text through glamour.
	Markdown bool
	// Style is a glamour standard style name; empty picks one from the terminal.
	Style string
	// Width wraps markdown output; 0 means 100 columns.
	Width int
}

// none is printed in the footer for fields the daemon did not send.
const none = "(none)"

var stageTitles = map[string]string{
	"byakugan":  "BYAKUGAN",
	"mode_sage": "MODE SAGE",
	"jougan":    "JOUGAN",
	"execution": "CODE",
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Text writes each present stage under a header, then a footer with timing
// and skills. Absent stages are skipped.
func Text(w io.Writer, res *ipc.Result, opts Options) error {
	if res == nil {
		return nil
	}

	md, err := newMarkdown(opts)
	if err != nil {
		return err
	}

	sections := []struct {
		name string
		text *string
	}{
		{"byakugan", res.Byakugan},
		{"mode_sage", res.ModeSage},
		{"jougan", res.Jougan},
		{"execution", res.Execution},
	}
	wrote := false
	for _, s := range sections {
		if s.text == nil {
			continue
		}
		if wrote {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s ===\n", stageTitles[s.name])
		body := *s.text
		if md != nil {
			if out, err := md.Render(body); err == nil {
				body = out
			}
		}
		fmt.Fprintln(w, strings.TrimRight(body, "\n"))
		wrote = true
	}

	if wrote {
		fmt.Fprintln(w)
	}
	_, err = fmt.Fprintln(w, Footer(res))
	return err
}

// Footer summarizes total time, per-stage timing and skills used.
func Footer(res *ipc.Result) string {
	total := none
	if res.TotalTime != nil {
		total = fmt.Sprintf("%.1fs", *res.TotalTime)
	}
	skills := none
	if res.SkillsUsed != nil {
		skills = strings.Join(res.SkillsUsed, ", ")
		if skills == "" {
			skills = "[]"
		}
	}

	line := fmt.Sprintf("Time: %s | Skills: %s", total, skills)
	if len(res.Timing) > 0 {
		line += " | Stages: " + formatTiming(res.Timing)
	}
	return line
}

func formatTiming(timing map[string]float64) string {
	order := make([]string, 0, len(timing))
	seen := make(map[string]bool, len(timing))
	for _, name := range ipc.StageNames {
		if _, ok := timing[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range timing {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	parts := make([]string, len(order))
	for i, name := range order {
		parts[i] = fmt.Sprintf("%s %.1fs", name, timing[name])
	}
	return strings.Join(parts, ", ")
}

// JSON writes the daemon document unchanged, newline terminated.
func JSON(w io.Writer, res *ipc.Result) error {
	raw := res.Raw()
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if raw[len(raw)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

func newMarkdown(opts Options) (*glamour.TermRenderer, error) {
	if !opts.Markdown {
		return nil, nil
	}
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r, nil
}
