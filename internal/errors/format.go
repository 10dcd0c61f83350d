package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls ANSI output. The CLI turns it off for non-terminals.
var colorEnabled = true

// DisableColors turns off ANSI output.
func DisableColors() { colorEnabled = false }

// EnableColors turns on ANSI output.
func EnableColors() { colorEnabled = true }

func paint(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format renders the error for a terminal.
func (e *SquidError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(paint(colorRed+colorBold, "ERROR"))
	if e.Code != "" {
		b.WriteString(paint(colorBold, " "+e.Code))
	}
	b.WriteString(paint(colorBold, ": "))
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  " + paint(colorCyan, e.Location.String()) + "\n\n")
		writeContext(&b, e.Location, e.Context)
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 72) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		for _, line := range strings.Split(strings.TrimRight(e.Wrapped.Error(), "\n"), "\n") {
			b.WriteString("  " + paint(colorGray, line) + "\n")
		}
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  " + paint(colorCyan, "Hint: ") + e.Suggestion + "\n\n")
	}

	if e.DocURL != "" {
		b.WriteString("  " + paint(colorGray, "Learn more: ") + paint(colorBlue, e.DocURL) + "\n")
	}

	return b.String()
}

func writeContext(b *strings.Builder, loc *Location, lines []string) {
	if len(lines) == 0 {
		return
	}
	first := loc.Line - len(lines)/2
	if first < 1 {
		first = 1
	}
	for i, line := range lines {
		n := first + i
		if n == loc.Line {
			fmt.Fprintf(b, "  %s%4d%s%s\n", paint(colorRed, "→ "), n, paint(colorGray, " │ "), line)
			if loc.Column > 0 {
				fmt.Fprintf(b, "       %s%s%s\n", paint(colorGray, "│ "), strings.Repeat(" ", loc.Column-1), paint(colorRed, "^"))
			}
			continue
		}
		fmt.Fprintf(b, "    %4d%s%s\n", n, paint(colorGray, " │ "), line)
	}
	b.WriteString("\n")
}

// FormatCompact renders the error on one line.
func (e *SquidError) FormatCompact() string {
	if e.Location != nil {
		return e.Location.String() + ": " + e.Error()
	}
	return e.Error()
}

// jsonError is the wire form sent to the dev overlay.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category,omitempty"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Cause      string    `json:"cause,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	DocURL     string    `json:"docUrl,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *SquidError) MarshalJSON() ([]byte, error) {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	return json.Marshal(out)
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// Fprint writes err to w, formatted when it is a *SquidError.
func Fprint(w io.Writer, err error) {
	var se *SquidError
	if As(err, &se) {
		fmt.Fprint(w, se.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint(colorRed+colorBold, "ERROR:"), err)
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
