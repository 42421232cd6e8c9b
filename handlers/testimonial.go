package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
)

const eventTestimonialsChanged = "testimonialsChanged"

type testimonialRequest struct {
	CompanyID    string `json:"company_id" form:"company_id"`
	ContactName  string `json:"contact_name" form:"contact_name"`
	ContactTitle string `json:"contact_title" form:"contact_title"`
	Content      string `json:"content" form:"content"`
	Rating       int    `json:"rating" form:"rating"`
	IsPublished  bool   `json:"is_published" form:"is_published"`
}

func (r testimonialRequest) input() services.TestimonialInput {
	return services.TestimonialInput{
		CompanyID: r.CompanyID, ContactName: r.ContactName, ContactTitle: r.ContactTitle,
		Content: r.Content, Rating: r.Rating, IsPublished: r.IsPublished,
	}
}

// ListTestimonialsHandler lists testimonials, optionally published ones of a company
func ListTestimonialsHandler(c echo.Context) error {
	page, limit := pageParams(c)
	items, total, err := services.ListTestimonials(db.DB, orgID(c), c.QueryParam("company_id"), queryBool(c, "published"), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID:      "testimonials-table",
		Columns: []string{tr(c, "fields.contact_name"), tr(c, "fields.company"), tr(c, "fields.rating"), tr(c, "fields.status"), tr(c, "fields.media")},
	}
	for _, t := range items {
		company := ""
		if t.Company != nil {
			company = t.Company.Name
		}
		status := tr(c, "testimonials.draft")
		if t.IsPublished {
			status = tr(c, "testimonials.published")
		}
		media := ""
		if t.MediaURL != "" {
			media = "✓"
		}
		row := components.Row{
			ID:    t.ID,
			Cells: []string{t.ContactName, company, strings.Repeat("★", t.Rating), status, media},
		}
		if user != nil && user.Can("testimonials:write") {
			label := tr(c, "testimonials.publish")
			if t.IsPublished {
				label = tr(c, "testimonials.unpublish")
			}
			row.Actions = append(row.Actions, components.Action{
				Label:  label,
				Method: "put",
				URL:    "/api/v1/commercial/testimonials/" + t.ID + "/publish?published=" + strconv.FormatBool(!t.IsPublished),
			})
		}
		if user != nil && user.Can("testimonials:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/commercial/testimonials/"+t.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, items, total, page, limit, view)
}

// GetTestimonialHandler returns one testimonial
func GetTestimonialHandler(c echo.Context) error {
	item, err := services.GetTestimonial(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// CreateTestimonialHandler records a testimonial. A "media" file in the same
// multipart form is uploaded right away.
func CreateTestimonialHandler(c echo.Context) error {
	var req testimonialRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	item, err := services.CreateTestimonial(db.DB, orgID(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	if fh, err := c.FormFile("media"); err == nil && fh.Size > 0 && services.Storage != nil {
		if item, err = attachMedia(c, item.ID); err != nil {
			return respondError(c, err)
		}
	}
	audit(c, models.AuditActionCreate, "Testimonial", item.ID, item.ContactName, nil, item)
	return respondMutation(c, http.StatusCreated, item, eventTestimonialsChanged, "testimonials.created")
}

// UpdateTestimonialHandler replaces the editable fields of a testimonial
func UpdateTestimonialHandler(c echo.Context) error {
	var req testimonialRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetTestimonial(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	item, err := services.UpdateTestimonial(db.DB, orgID(c), before.ID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Testimonial", item.ID, item.ContactName, before, item)
	return respondMutation(c, http.StatusOK, item, eventTestimonialsChanged, "common.saved")
}

// PublishTestimonialHandler publishes or withdraws a testimonial
func PublishTestimonialHandler(c echo.Context) error {
	published := true
	if raw := c.QueryParam("published"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c)
		}
		published = v
	}
	item, err := services.SetTestimonialPublished(db.DB, orgID(c), c.Param("id"), published)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Testimonial", item.ID, item.ContactName, nil, map[string]bool{"is_published": published})
	return respondMutation(c, http.StatusOK, item, eventTestimonialsChanged, "common.saved")
}

func attachMedia(c echo.Context, id string) (*models.Testimonial, error) {
	fh, err := c.FormFile("media")
	if err != nil {
		return nil, services.NewValidationError("media", "validation.required")
	}
	if err := services.ValidateMediaUpload(fh); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return services.AttachTestimonialMedia(reqCtx(c), db.DB, orgID(c), id, fh.Filename, f, fh.Size)
}

// UploadTestimonialMediaHandler attaches a photo or video to a testimonial
func UploadTestimonialMediaHandler(c echo.Context) error {
	if services.Storage == nil {
		return respondError(c, echo.NewHTTPError(http.StatusServiceUnavailable, tr(c, "errors.storage_unavailable")))
	}
	item, err := attachMedia(c, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Testimonial", item.ID, item.ContactName, nil, map[string]string{"media_key": item.MediaKey})
	return respondMutation(c, http.StatusOK, item, eventTestimonialsChanged, "testimonials.media_uploaded")
}

// DeleteTestimonialHandler removes a testimonial and its media
func DeleteTestimonialHandler(c echo.Context) error {
	item, err := services.GetTestimonial(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteTestimonial(reqCtx(c), db.DB, orgID(c), item.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Testimonial", item.ID, item.ContactName, item, nil)
	return respondMutation(c, http.StatusOK, nil, eventTestimonialsChanged, "common.deleted")
}
