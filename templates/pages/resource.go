package pages

import (
	"context"

	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// ResourcePageView describes a list page: a searchable table loaded from the
// API, a creation form and the optional import/export actions
type ResourcePageView struct {
	ListID       string
	ListEndpoint string
	// RefreshEvent is the HX-Trigger event emitted by mutations of this resource
	RefreshEvent string
	Searchable   bool
	Form         *components.FormView
	ImportKind   string
	ExportKind   string
	// GridResource enables the spreadsheet view of the list
	GridResource string
	Extra        templ.Component
}

// ResourcePage renders a list page body
func ResourcePage(view ResourcePageView) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Raw(`<section class="toolbar">`)
		if view.Searchable {
			hw.Raw(`<input type="search" name="keyword" class="search"`)
			hw.Attr("placeholder", i18n.T(ctx, "common.search"))
			hw.Attr("hx-get", view.ListEndpoint)
			hw.Raw(` hx-trigger="input changed delay:300ms, search"`)
			hw.Attr("hx-target", "#"+view.ListID+"-container")
			hw.Raw(`>`)
		}
		if view.ImportKind != "" {
			hw.Raw(`<a class="btn" href="#"`)
			hw.Attr("hx-get", "/api/v1/imports/"+view.ImportKind+"/modal")
			hw.Raw(` hx-target="#modal">`)
			hw.Text(i18n.T(ctx, "import.action"))
			hw.Raw(`</a>`)
		}
		if view.ExportKind != "" {
			hw.Raw(`<a class="btn"`)
			hw.Attr("href", "/api/v1/exports/"+view.ExportKind)
			hw.Raw(`>`)
			hw.Text(i18n.T(ctx, "export.action"))
			hw.Raw(`</a>`)
		}
		if view.GridResource != "" {
			hw.Raw(`<a class="btn" href="#"`)
			hw.Attr("hx-get", "/api/v1/grid/"+view.GridResource)
			hw.Attr("hx-target", "#"+view.ListID+"-container")
			hw.Raw(`>`)
			hw.Text(i18n.T(ctx, "grid.open"))
			hw.Raw(`</a>`)
		}
		hw.Raw(`</section>`)

		if view.Form != nil {
			hw.Raw(`<details class="create"><summary>`)
			hw.Text(i18n.T(ctx, "common.new"))
			hw.Raw(`</summary>`)
			hw.Component(ctx, components.Form(*view.Form))
			hw.Raw(`</details>`)
		}

		hw.Component(ctx, view.Extra)

		hw.Raw(`<div`)
		hw.Attr("id", view.ListID+"-container")
		hw.Attr("hx-get", view.ListEndpoint)
		trigger := "load"
		if view.RefreshEvent != "" {
			trigger += ", " + view.RefreshEvent + " from:body"
		}
		hw.Attr("hx-trigger", trigger)
		hw.Raw(`><p class="loading">`)
		hw.Text(i18n.T(ctx, "common.loading"))
		hw.Raw(`</p></div>`)
	})
}
