package errors

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category groups error codes by where they surface.
type Category string

const (
	CategoryRoute    Category = "route"
	CategoryBuild    Category = "build"
	CategoryRequest  Category = "request"
	CategoryConfig   Category = "config"
	CategoryArtifact Category = "artifact"
	CategoryCLI      Category = "cli"
)

// Location points at a source file position.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String returns file:line:column, omitting zero parts.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	switch {
	case l.Line == 0:
		return l.File
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
}

// SquidError is a coded error with enough context to act on it.
type SquidError struct {
	// Code is the registered identifier, e.g. "E200".
	Code string

	Category Category
	Message  string
	Detail   string

	// Location is the source file the error is about, if known.
	Location *Location

	// Context holds source lines around Location.
	Context []string

	Suggestion string
	DocURL     string

	Wrapped error
}

// Error implements error.
func (e *SquidError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *SquidError) Unwrap() error {
	return e.Wrapped
}

// WithLocation attaches a source position and reads the surrounding lines.
func (e *SquidError) WithLocation(file string, line, column int) *SquidError {
	e.Location = &Location{File: file, Line: line, Column: column}
	if line > 0 {
		e.Context = readContextLines(file, line, 5)
	}
	return e
}

// compilerPos matches the "file:line:col" position esbuild prints under
// each diagnostic.
var compilerPos = regexp.MustCompile(`([^\s:]+\.[cm]?[jt]sx?):(\d+):(\d+)`)

// WithLocationFromOutput extracts the first file position from bundler output.
func (e *SquidError) WithLocationFromOutput(output string) *SquidError {
	m := compilerPos.FindStringSubmatch(output)
	if m == nil {
		return e
	}
	line, _ := strconv.Atoi(m[2])
	col, _ := strconv.Atoi(m[3])
	return e.WithLocation(m[1], line, col)
}

// WithSuggestion sets the fix hint.
func (e *SquidError) WithSuggestion(s string) *SquidError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered detail text.
func (e *SquidError) WithDetail(d string) *SquidError {
	e.Detail = d
	return e
}

// Wrap sets the underlying cause.
func (e *SquidError) Wrap(err error) *SquidError {
	e.Wrapped = err
	return e
}

func readContextLines(filename string, target, size int) []string {
	f, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer f.Close()

	start, end := target-size/2, target+size/2
	var lines []string
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= end; n++ {
		if n >= start {
			lines = append(lines, sc.Text())
		}
	}
	return lines
}

// New creates an error from a registered code.
func New(code string) *SquidError {
	tmpl, ok := Lookup(code)
	if !ok {
		return &SquidError{Code: code, Message: "Unknown error"}
	}
	return &SquidError{
		Code:     code,
		Category: tmpl.Category,
		Message:  tmpl.Message,
		Detail:   tmpl.Detail,
		DocURL:   docURL(code),
	}
}

// Newf creates an uncoded error.
func Newf(category Category, format string, args ...any) *SquidError {
	return &SquidError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError returns err as a *SquidError, wrapping it under code when it is
// not one already.
func FromError(err error, code string) *SquidError {
	if err == nil {
		return nil
	}
	var se *SquidError
	if As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}
