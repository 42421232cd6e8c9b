package components

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"biz_flow_app_go/services/i18n"

	"github.com/a-h/templ"
)

// Alert renders an inline message box. Kind is "error", "success" or "info".
func Alert(kind, message string) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		hw.Raw(`<div class="alert alert-`, templ.EscapeString(kind), `" role="alert">`)
		hw.Text(message)
		hw.Raw(`</div>`)
	})
}

// FieldErrors renders the messages of a failed validation, one per field
func FieldErrors(message string, fields map[string]string) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		hw.Raw(`<div class="alert alert-error" role="alert"><p>`)
		hw.Text(message)
		hw.Raw(`</p>`)
		if len(fields) > 0 {
			hw.Raw(`<ul class="field-errors">`)
			for _, field := range SortedKeys(fields) {
				hw.Raw(`<li data-field="`, templ.EscapeString(field), `">`)
				hw.Text(i18n.T(ctx, "fields."+field) + " : " + fields[field])
				hw.Raw(`</li>`)
			}
			hw.Raw(`</ul>`)
		}
		hw.Raw(`</div>`)
	})
}

// Badge renders a status pill
func Badge(status, label string) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		hw.Raw(`<span class="badge badge-`, templ.EscapeString(status), `">`)
		hw.Text(label)
		hw.Raw(`</span>`)
	})
}

// Action is a row button issuing an HTMX request
type Action struct {
	Label   string
	Method  string // post, put or delete
	URL     string
	Confirm string
}

// Row is one line of a TableView
type Row struct {
	ID      string
	Link    string
	Cells   []string
	Actions []Action
}

// TableView is the generic list partial returned to HTMX list requests
type TableView struct {
	ID         string
	Columns    []string
	Rows       []Row
	Page       int
	TotalPages int
	Total      int64
	// Endpoint is re-requested with ?page=N by the pagination links
	Endpoint string
	Query    url.Values
}

// Table renders a TableView with its pagination
func Table(view TableView) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		hw.Raw(`<div class="table-wrapper"`)
		hw.Attr("id", view.ID)
		hw.Raw(`><table class="table"><thead><tr>`)
		for _, col := range view.Columns {
			hw.Raw(`<th>`)
			hw.Text(col)
			hw.Raw(`</th>`)
		}
		withActions := false
		for _, row := range view.Rows {
			if len(row.Actions) > 0 {
				withActions = true
				break
			}
		}
		if withActions {
			hw.Raw(`<th></th>`)
		}
		hw.Raw(`</tr></thead><tbody>`)
		if len(view.Rows) == 0 {
			hw.Raw(`<tr><td class="empty"`)
			hw.Attr("colspan", strconv.Itoa(len(view.Columns)))
			hw.Raw(`>`)
			hw.Text(i18n.T(ctx, "common.empty"))
			hw.Raw(`</td></tr>`)
		}
		for _, row := range view.Rows {
			hw.Raw(`<tr`)
			hw.Attr("data-id", row.ID)
			hw.Raw(`>`)
			for i, cell := range row.Cells {
				hw.Raw(`<td>`)
				if i == 0 && row.Link != "" {
					hw.Raw(`<a`)
					hw.Attr("href", row.Link)
					hw.Raw(`>`)
					hw.Text(cell)
					hw.Raw(`</a>`)
				} else {
					hw.Text(cell)
				}
				hw.Raw(`</td>`)
			}
			if withActions {
				hw.Raw(`<td class="actions">`)
				for _, a := range row.Actions {
					hw.Raw(`<button class="btn btn-link"`)
					hw.Attr("hx-"+a.Method, a.URL)
					if a.Confirm != "" {
						hw.Attr("hx-confirm", a.Confirm)
					}
					hw.Raw(` hx-swap="none">`)
					hw.Text(a.Label)
					hw.Raw(`</button>`)
				}
				hw.Raw(`</td>`)
			}
			hw.Raw(`</tr>`)
		}
		hw.Raw(`</tbody></table>`)
		hw.Component(ctx, Pagination(view))
		hw.Raw(`</div>`)
	})
}

// Pagination renders previous/next links that swap the whole table
func Pagination(view TableView) templ.Component {
	return Func(func(ctx context.Context, hw *Writer) {
		if view.TotalPages <= 1 {
			return
		}
		hw.Raw(`<nav class="pagination">`)
		link := func(page int, label string) {
			q := url.Values{}
			for k, v := range view.Query {
				q[k] = v
			}
			q.Set("page", strconv.Itoa(page))
			hw.Raw(`<a href="#"`)
			hw.Attr("hx-get", view.Endpoint+"?"+q.Encode())
			hw.Attr("hx-target", "#"+view.ID)
			hw.Raw(` hx-swap="outerHTML">`)
			hw.Text(label)
			hw.Raw(`</a>`)
		}
		if view.Page > 1 {
			link(view.Page-1, i18n.T(ctx, "common.previous"))
		}
		hw.Raw(`<span>`)
		hw.Text(i18n.T(ctx, "common.page_of", map[string]interface{}{"page": view.Page, "total": view.TotalPages}))
		hw.Raw(`</span>`)
		if view.Page < view.TotalPages {
			link(view.Page+1, i18n.T(ctx, "common.next"))
		}
		hw.Raw(`</nav>`)
	})
}

// Percent formats a ratio already expressed in percent
func Percent(v float64) string {
	return fmt.Sprintf("%.1f %%", v)
}
