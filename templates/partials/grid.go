package partials

import (
	"context"
	"strconv"
	"strings"

	"biz_flow_app_go/services/grid"
	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// GridTable renders an editable spreadsheet view. Each editable cell posts
// its value on change; app.js handles the keyboard and clipboard and sends
// the key that ended the edit so the server picks the next active cell.
func GridTable(resource string, g *grid.Grid) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		visible := g.VisibleColumns()
		ids := make([]string, 0, len(g.Rows))
		for _, r := range g.Rows {
			ids = append(ids, r["id"])
		}
		hw.Raw(`<div class="grid-wrapper"`)
		hw.Attr("id", "grid-"+resource)
		hw.Attr("data-grid", resource)
		hw.Attr("data-active", g.Active.Key())
		hw.Raw(`><table class="grid" role="grid"><thead><tr>`)
		for _, i := range visible {
			hw.Raw(`<th>`)
			hw.Text(g.Columns[i].Label)
			hw.Raw(`</th>`)
		}
		hw.Raw(`</tr></thead><tbody>`)
		for r := range g.Rows {
			hw.Raw(`<tr`)
			hw.Attr("data-row", strconv.Itoa(r))
			hw.Attr("data-id", g.Rows[r]["id"])
			hw.Raw(`>`)
			for _, i := range visible {
				hw.Component(ctx, GridCell(resource, g, grid.Cell{Row: r, Col: i}))
			}
			hw.Raw(`</tr>`)
		}
		hw.Raw(`</tbody></table>`)
		hw.Raw(`<form class="grid-paste"`)
		hw.Attr("hx-post", "/api/v1/grid/"+resource+"/paste")
		hw.Attr("hx-target", "#grid-"+resource)
		hw.Raw(` hx-swap="outerHTML"><input type="hidden" name="anchor"`)
		hw.Attr("value", g.Active.Key())
		hw.Raw(`><input type="hidden" name="ids"`)
		hw.Attr("value", strings.Join(ids, ","))
		hw.Raw(`><textarea name="text" rows="2"`)
		hw.Attr("placeholder", i18n.T(ctx, "grid.paste_here"))
		hw.Raw(`></textarea><button type="submit" class="btn">`)
		hw.Text(i18n.T(ctx, "grid.paste"))
		hw.Raw(`</button></form></div>`)
	})
}

// GridCell renders one cell. It is also the response of a single cell update.
func GridCell(resource string, g *grid.Grid, c grid.Cell) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		col := g.Columns[c.Col]
		key := c.Key()
		hw.Raw(`<td`)
		hw.Attr("id", "cell-"+resource+"-"+key)
		hw.Attr("data-cell", key)
		class := "cell"
		if c == g.Active {
			class += " active"
		}
		msg, invalid := g.Errors[key]
		if invalid {
			class += " invalid"
			hw.Attr("title", i18n.T(ctx, msg))
		}
		hw.Attr("class", class)
		hw.Raw(`>`)
		value := g.Value(c)
		if col.ReadOnly {
			hw.Text(value)
			hw.Raw(`</td>`)
			return
		}

		hw.Raw(`<input`)
		hw.Attr("name", "value")
		switch col.Type {
		case grid.TypeNumber:
			hw.Raw(` type="number" step="any"`)
		case grid.TypeDate:
			hw.Raw(` type="date"`)
		case grid.TypeSelect:
			hw.Attr("list", "options-"+resource+"-"+col.Key)
		}
		hw.Attr("value", value)
		hw.Attr("hx-post", "/api/v1/grid/"+resource+"/cell")
		hw.Raw(` hx-trigger="change"`)
		hw.Attr("hx-target", "#cell-"+resource+"-"+key)
		hw.Raw(` hx-swap="outerHTML"`)
		hw.Attr("hx-vals", components.JSON(map[string]string{"cell": key, "id": g.Rows[c.Row]["id"]}))
		hw.AttrIf(invalid, `aria-invalid="true"`)
		hw.Raw(`>`)
		if col.Type == grid.TypeSelect {
			hw.Raw(`<datalist`)
			hw.Attr("id", "options-"+resource+"-"+col.Key)
			hw.Raw(`>`)
			for _, opt := range col.Options {
				hw.Raw(`<option`)
				hw.Attr("value", opt)
				hw.Raw(`>`)
			}
			hw.Raw(`</datalist>`)
		}
		hw.Raw(`</td>`)
	})
}
