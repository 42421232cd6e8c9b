package components

import (
	"context"
	"slices"
	"strings"

	"biz_flow_app_go/services/i18n"

	"github.com/a-h/templ"
)

// Option is a choice of a select field
type Option struct {
	Value string
	Label string
}

// Field describes one input of a generic form
type Field struct {
	Name     string
	Label    string
	Type     string // text, email, number, date, textarea, select, checkbox, file
	Value    string
	Options  []Option
	Required bool
	Step     string
}

// FormView is a form posted with HTMX. The server answers with a toast and a
// refresh event, or an error partial swapped into the form's error slot.
type FormView struct {
	ID        string
	Action    string
	Method    string // post or put
	Fields    []Field
	Submit    string
	CSRFToken string
	// RefreshEvent is triggered on success so the list reloads
	RefreshEvent string
	Multipart    bool
}

// Form renders a FormView
func Form(view FormView) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		method := view.Method
		if method == "" {
			method = "post"
		}
		hw.Raw(`<form class="form"`)
		hw.Attr("id", view.ID)
		hw.Attr("hx-"+method, view.Action)
		hw.Attr("hx-target", "#"+view.ID+"-errors")
		hw.Raw(` hx-swap="innerHTML"`)
		if view.Multipart {
			hw.Raw(` hx-encoding="multipart/form-data"`)
		}
		hw.Raw(`>`)
		hw.Raw(`<input type="hidden" name="_csrf"`)
		hw.Attr("value", view.CSRFToken)
		hw.Raw(`>`)
		hw.Raw(`<div`)
		hw.Attr("id", view.ID+"-errors")
		hw.Raw(`></div>`)
		for _, f := range view.Fields {
			renderField(hw, f)
		}
		submit := view.Submit
		if submit == "" {
			submit = i18n.T(ctx, "common.save")
		}
		hw.Raw(`<button type="submit" class="btn btn-primary">`)
		hw.Text(submit)
		hw.Raw(`</button></form>`)
	})
}

func renderField(hw *Writer, f Field) {
	hw.Raw(`<label class="field"><span>`)
	hw.Text(f.Label)
	if f.Required {
		hw.Raw(` *`)
	}
	hw.Raw(`</span>`)
	switch f.Type {
	case "textarea":
		hw.Raw(`<textarea`)
		hw.Attr("name", f.Name)
		hw.AttrIf(f.Required, "required")
		hw.Raw(`>`)
		hw.Text(f.Value)
		hw.Raw(`</textarea>`)
	case "select":
		hw.Raw(`<select`)
		hw.Attr("name", f.Name)
		hw.AttrIf(f.Required, "required")
		hw.Raw(`>`)
		if !f.Required {
			hw.Raw(`<option value=""></option>`)
		}
		for _, opt := range f.Options {
			hw.Raw(`<option`)
			hw.Attr("value", opt.Value)
			hw.AttrIf(opt.Value == f.Value, "selected")
			hw.Raw(`>`)
			hw.Text(opt.Label)
			hw.Raw(`</option>`)
		}
		hw.Raw(`</select>`)
	case "multiselect":
		// Value holds the selected options separated by commas
		selected := strings.Split(f.Value, ",")
		hw.Raw(`<select multiple size="8"`)
		hw.Attr("name", f.Name)
		hw.Raw(`>`)
		for _, opt := range f.Options {
			hw.Raw(`<option`)
			hw.Attr("value", opt.Value)
			hw.AttrIf(slices.Contains(selected, opt.Value), "selected")
			hw.Raw(`>`)
			hw.Text(opt.Label)
			hw.Raw(`</option>`)
		}
		hw.Raw(`</select>`)
	case "checkbox":
		hw.Raw(`<input type="checkbox" value="true"`)
		hw.Attr("name", f.Name)
		hw.AttrIf(f.Value == "true", "checked")
		hw.Raw(`>`)
	default:
		typ := f.Type
		if typ == "" {
			typ = "text"
		}
		hw.Raw(`<input`)
		hw.Attr("type", typ)
		hw.Attr("name", f.Name)
		if typ != "file" {
			hw.Attr("value", f.Value)
		}
		if f.Step != "" {
			hw.Attr("step", f.Step)
		}
		hw.AttrIf(f.Required, "required")
		hw.Raw(`>`)
	}
	hw.Raw(`</label>`)
}
