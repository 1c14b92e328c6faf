package document

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrUnsupportedShapeType = errors.New("unsupported shape type")
	ErrArithmeticGuard      = errors.New("arithmetic guard")
	ErrDuplicateID          = errors.New("duplicate shape id")
)

// LocationError pins an error to a place in the input. Negative Frame or
// Shape and empty State mean "not applicable".
type LocationError struct {
	Doc    string
	State  string
	Frame  int
	Shape  int
	Detail string
	Err    error
}

func (e *LocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "document %q", e.Doc)
	if e.State != "" {
		fmt.Fprintf(&b, " state %q", e.State)
	}
	if e.Frame >= 0 {
		fmt.Fprintf(&b, " frame %d", e.Frame)
	}
	if e.Shape >= 0 {
		fmt.Fprintf(&b, " shape %d", e.Shape)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *LocationError) Unwrap() error { return e.Err }

func docError(doc string, kind error, format string, args ...any) *LocationError {
	return &LocationError{Doc: doc, Frame: -1, Shape: -1, Err: kind, Detail: fmt.Sprintf(format, args...)}
}
