package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#888888")).
			Padding(0, 1).
			MarginTop(1)
)

// styler applies a style only when output is styled.
type styler bool

func (s styler) render(style lipgloss.Style, text string) string {
	if !s {
		return text
	}
	return style.Render(text)
}

// RenderText writes one PASS/FAIL line per file followed by the file's
// errors as "path: message" lines, then a summary line.
func (b *Batch) RenderText(w io.Writer, styled bool) error {
	st := styler(styled)
	var sb strings.Builder

	for _, r := range b.Results {
		switch {
		case r.ReadErr != nil:
			fmt.Fprintf(&sb, "%s %s\n  %s\n", st.render(failStyle, "FAIL"), r.Name, r.ReadErr)
		case r.Passed():
			fmt.Fprintf(&sb, "%s %s\n", st.render(passStyle, "PASS"), r.Name)
		default:
			fmt.Fprintf(&sb, "%s %s %s\n", st.render(failStyle, "FAIL"), r.Name,
				st.render(mutedStyle, fmt.Sprintf("(%d %s)", len(r.Errors), plural(len(r.Errors), "error"))))
			for _, e := range r.Errors {
				sb.WriteString("  ")
				if e.Path != "" {
					sb.WriteString(st.render(pathStyle, e.Path))
					sb.WriteString(": ")
				}
				sb.WriteString(e.Message)
				sb.WriteString("\n")
			}
		}
	}

	summary := fmt.Sprintf("%d %s, %d passed, %d failed",
		len(b.Results), plural(len(b.Results), "file"), b.Passed(), b.Failed())
	if styled {
		summary = summaryStyle.Render(summary)
	}
	sb.WriteString(summary)
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

type jsonFile struct {
	FileResult
	Passed    bool   `json:"passed"`
	ReadError string `json:"readError,omitempty"`
}

type jsonBatch struct {
	Files  []jsonFile `json:"files"`
	Passed int        `json:"passed"`
	Failed int        `json:"failed"`
}

// RenderJSON writes the batch as an indented JSON document.
func (b *Batch) RenderJSON(w io.Writer) error {
	out := jsonBatch{
		Files:  make([]jsonFile, 0, len(b.Results)),
		Passed: b.Passed(),
		Failed: b.Failed(),
	}
	for _, r := range b.Results {
		f := jsonFile{FileResult: r, Passed: r.Passed()}
		if r.ReadErr != nil {
			f.ReadError = r.ReadErr.Error()
		}
		out.Files = append(out.Files, f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
