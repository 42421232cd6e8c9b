package components

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates markup for hand-written templ components.
// The first write error sticks and is returned by Err.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup as is
func (hw *Writer) Raw(parts ...string) {
	for _, p := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, p)
	}
}

// Text writes escaped text
func (hw *Writer) Text(s string) {
	hw.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with the value escaped
func (hw *Writer) Attr(name, value string) {
	hw.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// AttrIf writes a boolean attribute when cond holds
func (hw *Writer) AttrIf(cond bool, name string) {
	if cond {
		hw.Raw(" ", name)
	}
}

// Component renders a nested component
func (hw *Writer) Component(ctx context.Context, c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

func (hw *Writer) Err() error {
	return hw.err
}

// Func adapts a render function into a templ.Component
func Func(render func(ctx context.Context, hw *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		render(ctx, hw)
		return hw.Err()
	})
}
