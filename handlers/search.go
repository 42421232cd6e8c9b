package handlers

import (
	"log"
	"net/http"
	"strconv"

	"biz_flow_app_go/db"
	"biz_flow_app_go/middleware"
	"biz_flow_app_go/services"
	"biz_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

var searchService *services.SearchService

// InitSearchService initializes the search service
func InitSearchService() {
	searchService = services.NewSearchService(db.DB)
}

// SearchHandler runs the global search box
// GET /api/v1/search?q=keyword&limit=10
func SearchHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return respondError(c, echo.ErrUnauthorized)
	}
	if searchService == nil {
		InitSearchService()
	}

	query := c.QueryParam("q")
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 50 {
			limit = l
		}
	}

	results, err := searchService.Search(reqCtx(c), user, query, limit)
	if err != nil {
		log.Printf("[ERROR] Search failed for organization %s: %v", orgID(c), err)
		return respondError(c, err)
	}

	if isHTMX(c) {
		return render(c, http.StatusOK, partials.SearchResults(results))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"query":   query,
		"count":   len(results),
	})
}
