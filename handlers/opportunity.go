package handlers

import (
	"net/http"
	"strconv"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/components"

	"github.com/labstack/echo/v4"
)

const eventOpportunitiesChanged = "opportunitiesChanged"

type opportunityRequest struct {
	CompanyID         string  `json:"company_id" form:"company_id"`
	ContactID         string  `json:"contact_id" form:"contact_id"`
	Title             string  `json:"title" form:"title"`
	Amount            float64 `json:"amount" form:"amount"`
	Currency          string  `json:"currency" form:"currency"`
	Stage             string  `json:"stage" form:"stage"`
	Probability       OptInt  `json:"probability" form:"probability"`
	ExpectedCloseDate Date    `json:"expected_close_date" form:"expected_close_date"`
	Notes             string  `json:"notes" form:"notes"`
	OwnerID           string  `json:"owner_id" form:"owner_id"`
}

func (r opportunityRequest) input(c echo.Context) services.OpportunityInput {
	in := services.OpportunityInput{
		CompanyID:         r.CompanyID,
		ContactID:         optional(&r.ContactID),
		Title:             r.Title,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Stage:             r.Stage,
		Probability:       r.Probability.Value,
		ExpectedCloseDate: r.ExpectedCloseDate.Ptr(),
		Notes:             r.Notes,
		OwnerID:           optional(&r.OwnerID),
	}
	if in.Currency == "" {
		in.Currency = currency(c)
	}
	if in.OwnerID == nil {
		if user := middleware.GetCurrentUser(c); user != nil {
			in.OwnerID = &user.ID
		}
	}
	return in
}

// ListOpportunitiesHandler lists opportunities filtered by stage, company, owner or keyword
func ListOpportunitiesHandler(c echo.Context) error {
	page, limit := pageParams(c)
	filters := services.OpportunityFilters{
		Keyword:   c.QueryParam("keyword"),
		Stage:     c.QueryParam("stage"),
		CompanyID: c.QueryParam("company_id"),
		OwnerID:   c.QueryParam("owner_id"),
		OpenOnly:  queryBool(c, "open"),
	}
	opps, total, err := services.ListOpportunities(db.DB, orgID(c), filters, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	user := middleware.GetCurrentUser(c)
	view := components.TableView{
		ID: "opportunities-table",
		Columns: []string{tr(c, "fields.title"), tr(c, "fields.company"), tr(c, "fields.stage"),
			tr(c, "fields.amount"), tr(c, "fields.probability"), tr(c, "fields.expected_close_date")},
	}
	for _, o := range opps {
		company := ""
		if o.Company != nil {
			company = o.Company.Name
		}
		row := components.Row{
			ID: o.ID,
			Cells: []string{o.Title, company, tr(c, "stages."+o.Stage),
				services.FormatMoney(o.Amount, o.Currency), strconv.Itoa(o.Probability) + " %", formatDate(o.ExpectedCloseDate)},
		}
		if user != nil && user.Can("opportunities:write") && o.IsOpen() {
			if next := nextStage(o.Stage); next != "" {
				row.Actions = append(row.Actions, components.Action{
					Label:  tr(c, "opportunities.move_to", map[string]interface{}{"stage": tr(c, "stages."+next)}),
					Method: "put",
					URL:    "/api/v1/commercial/opportunities/" + o.ID + "/stage?stage=" + next,
				})
			}
			row.Actions = append(row.Actions, components.Action{
				Label:   tr(c, "stages."+models.StageLost),
				Method:  "put",
				URL:     "/api/v1/commercial/opportunities/" + o.ID + "/stage?stage=" + models.StageLost,
				Confirm: tr(c, "opportunities.confirm_lost"),
			})
		}
		if user != nil && user.Can("opportunities:delete") {
			row.Actions = append(row.Actions, deleteAction(c, "/api/v1/commercial/opportunities/"+o.ID))
		}
		view.Rows = append(view.Rows, row)
	}
	return respondList(c, opps, total, page, limit, view)
}

// nextStage returns the stage after the given open stage (WON after NEGOTIATION)
func nextStage(stage string) string {
	for i, s := range models.PipelineStages {
		if s == stage && i+1 < len(models.PipelineStages) && stage != models.StageWon {
			return models.PipelineStages[i+1]
		}
	}
	return ""
}

// GetOpportunityHandler returns one opportunity
func GetOpportunityHandler(c echo.Context) error {
	opp, err := services.GetOpportunity(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

// CreateOpportunityHandler opens an opportunity for a company
func CreateOpportunityHandler(c echo.Context) error {
	var req opportunityRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	opp, err := services.CreateOpportunity(db.DB, orgID(c), req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionCreate, "Opportunity", opp.ID, opp.Title, nil, opp)
	return respondMutation(c, http.StatusCreated, opp, eventOpportunitiesChanged, "opportunities.created")
}

// UpdateOpportunityHandler replaces the editable fields of an opportunity
func UpdateOpportunityHandler(c echo.Context) error {
	var req opportunityRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	before, err := services.GetOpportunity(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	opp, err := services.UpdateOpportunity(db.DB, orgID(c), before.ID, req.input(c))
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Opportunity", opp.ID, opp.Title, before, opp)
	return respondMutation(c, http.StatusOK, opp, eventOpportunitiesChanged, "common.saved")
}

type stageRequest struct {
	Stage       string `json:"stage" form:"stage"`
	Probability OptInt `json:"probability" form:"probability"`
}

// MoveStageHandler moves an opportunity through the pipeline
func MoveStageHandler(c echo.Context) error {
	var req stageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	// echo only binds the query string of GET and DELETE requests
	if req.Stage == "" {
		req.Stage = c.QueryParam("stage")
	}
	before, err := services.GetOpportunity(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	opp, err := services.MoveStage(db.DB, orgID(c), before.ID, req.Stage, req.Probability.Value)
	if err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionUpdate, "Opportunity", opp.ID, opp.Title,
		map[string]interface{}{"stage": before.Stage, "probability": before.Probability},
		map[string]interface{}{"stage": opp.Stage, "probability": opp.Probability})
	return respondMutation(c, http.StatusOK, opp, eventOpportunitiesChanged, "opportunities.stage_changed")
}

// DeleteOpportunityHandler removes an opportunity
func DeleteOpportunityHandler(c echo.Context) error {
	opp, err := services.GetOpportunity(db.DB, orgID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := services.DeleteOpportunity(db.DB, orgID(c), opp.ID); err != nil {
		return respondError(c, err)
	}
	audit(c, models.AuditActionDelete, "Opportunity", opp.ID, opp.Title, opp, nil)
	return respondMutation(c, http.StatusOK, nil, eventOpportunitiesChanged, "common.deleted")
}

// PipelineHandler returns count, amount and weighted amount per stage
func PipelineHandler(c echo.Context) error {
	summary, err := services.PipelineSummary(db.DB, orgID(c), c.QueryParam("company_id"))
	if err != nil {
		return respondError(c, err)
	}
	if !isHTMX(c) {
		return c.JSON(http.StatusOK, summary)
	}
	view := components.TableView{
		ID:      "pipeline-table",
		Columns: []string{tr(c, "fields.stage"), tr(c, "pipeline.count"), tr(c, "fields.amount"), tr(c, "pipeline.weighted")},
	}
	for _, s := range summary {
		view.Rows = append(view.Rows, components.Row{
			Cells: []string{tr(c, "stages."+s.Stage), count(s.Count), money(c, s.Amount), money(c, s.Weighted)},
		})
	}
	return render(c, http.StatusOK, components.Table(view))
}
