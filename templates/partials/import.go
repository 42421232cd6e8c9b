package partials

import (
	"context"
	"strconv"

	"biz_flow_app_go/services/i18n"
	"biz_flow_app_go/services/importer"
	"biz_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// ImportModal is the upload dialog of one import kind
func ImportModal(kind, csrfToken string) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		hw.Raw(`<dialog class="modal" open><h2>`)
		hw.Text(i18n.T(ctx, "import.title", map[string]interface{}{"kind": i18n.T(ctx, "import.kinds."+kind)}))
		hw.Raw(`</h2><p>`)
		hw.Text(i18n.T(ctx, "import.help"))
		hw.Raw(` <a`)
		hw.Attr("href", "/api/v1/imports/"+kind+"/template")
		hw.Raw(`>`)
		hw.Text(i18n.T(ctx, "import.download_template"))
		hw.Raw(`</a></p><form`)
		hw.Attr("hx-post", "/api/v1/imports/"+kind)
		hw.Raw(` hx-encoding="multipart/form-data" hx-target="#import-result"><input type="hidden" name="_csrf"`)
		hw.Attr("value", csrfToken)
		hw.Raw(`><input type="file" name="file" accept=".xlsx,.zip" required><button type="submit" class="btn btn-primary">`)
		hw.Text(i18n.T(ctx, "import.submit"))
		hw.Raw(`</button></form><div id="import-result"></div><form method="dialog"><button class="btn btn-link">`)
		hw.Text(i18n.T(ctx, "common.close"))
		hw.Raw(`</button></form></dialog>`)
	})
}

// ImportResult summarizes an import and lists the row errors
func ImportResult(res *importer.Result) templ.Component {
	return components.Func(func(ctx context.Context, hw *components.Writer) {
		kind := "success"
		if res.Failed > 0 {
			kind = "info"
		}
		hw.Component(ctx, components.Alert(kind, i18n.T(ctx, "import.summary", map[string]interface{}{
			"total":   res.TotalProcessed,
			"created": res.Created,
			"updated": res.Updated,
			"failed":  res.Failed,
		})))
		if res.MediaUploaded > 0 {
			hw.Raw(`<p>`)
			hw.Text(i18n.T(ctx, "import.media_uploaded", map[string]interface{}{"count": strconv.Itoa(res.MediaUploaded)}))
			hw.Raw(`</p>`)
		}
		if len(res.Errors) > 0 {
			hw.Raw(`<ul class="import-errors">`)
			for _, e := range res.Errors {
				hw.Raw(`<li>`)
				hw.Text(e)
				hw.Raw(`</li>`)
			}
			hw.Raw(`</ul>`)
		}
	})
}
