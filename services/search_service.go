package services

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"sync"

	"biz_flow_app_go/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Search result types
const (
	SearchTypeCompany     = "company"
	SearchTypeContact     = "contact"
	SearchTypeOpportunity = "opportunity"
	SearchTypeProject     = "project"
	SearchTypeInvoice     = "invoice"
)

// SearchResult is one hit of the global search box
type SearchResult struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	URL      string  `json:"url"`
	Snippet  string  `json:"snippet"` // escaped HTML with <mark> around the match
	Rank     float64 `json:"rank"`
}

// SearchService runs the global search over the records the user may read
type SearchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

type searcher struct {
	permission string
	run        func(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error)
}

// Search queries every readable resource in parallel and merges hits by rank.
// Terms shorter than two characters are ignored.
func (s *SearchService) Search(ctx context.Context, user *models.User, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	term := sanitizeSearchQuery(query)
	if term == "" || user == nil || !user.HasOrganization() {
		return []SearchResult{}, nil
	}
	orgID := *user.OrganizationID
	pattern := "%" + term + "%"

	searchers := []searcher{
		{"companies:read", s.searchCompanies},
		{"companies:read", s.searchContacts},
		{"opportunities:read", s.searchOpportunities},
		{"projects:read", s.searchProjects},
		{"invoices:read", s.searchInvoices},
	}

	var (
		mu      sync.Mutex
		results []SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, sr := range searchers {
		if !user.Can(sr.permission) {
			continue
		}
		sr := sr
		g.Go(func() error {
			hits, err := sr.run(gctx, orgID, pattern, limit)
			if err != nil {
				return err
			}
			for i := range hits {
				hits[i].Rank = rankHit(hits[i].Title, term)
				hits[i].Snippet = highlight(hits[i].Title+" "+hits[i].Subtitle, term)
			}
			mu.Lock()
			results = append(results, hits...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		return results[i].Title < results[j].Title
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SearchService) searchCompanies(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error) {
	var rows []models.Company
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND (name LIKE ? OR legal_id LIKE ? OR email LIKE ? OR city LIKE ?)", orgID, pattern, pattern, pattern, pattern).
		Order("name ASC").Limit(limit).Find(&rows).Error
	out := make([]SearchResult, 0, len(rows))
	for _, c := range rows {
		out = append(out, SearchResult{Type: SearchTypeCompany, ID: c.ID, Title: c.Name, Subtitle: strings.TrimSpace(c.City + " " + c.Email), URL: "/companies/" + c.ID})
	}
	return out, err
}

func (s *SearchService) searchContacts(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error) {
	var rows []models.Contact
	err := s.db.WithContext(ctx).Preload("Company").
		Where("organization_id = ? AND (first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)", orgID, pattern, pattern, pattern).
		Order("last_name ASC").Limit(limit).Find(&rows).Error
	out := make([]SearchResult, 0, len(rows))
	for _, c := range rows {
		sub := c.Email
		if c.Company != nil {
			sub = c.Company.Name + " " + sub
		}
		out = append(out, SearchResult{Type: SearchTypeContact, ID: c.ID, Title: c.FullName(), Subtitle: sub, URL: "/companies/" + c.CompanyID})
	}
	return out, err
}

func (s *SearchService) searchOpportunities(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error) {
	var rows []models.Opportunity
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND title LIKE ?", orgID, pattern).
		Order("updated_at DESC").Limit(limit).Find(&rows).Error
	out := make([]SearchResult, 0, len(rows))
	for _, o := range rows {
		out = append(out, SearchResult{Type: SearchTypeOpportunity, ID: o.ID, Title: o.Title, Subtitle: o.Stage, URL: "/opportunities"})
	}
	return out, err
}

func (s *SearchService) searchProjects(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error) {
	var rows []models.Project
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND (name LIKE ? OR code LIKE ?)", orgID, pattern, pattern).
		Order("code DESC").Limit(limit).Find(&rows).Error
	out := make([]SearchResult, 0, len(rows))
	for _, p := range rows {
		out = append(out, SearchResult{Type: SearchTypeProject, ID: p.ID, Title: p.Name, Subtitle: p.Code, URL: "/projects/" + p.ID})
	}
	return out, err
}

func (s *SearchService) searchInvoices(ctx context.Context, orgID, pattern string, limit int) ([]SearchResult, error) {
	var rows []models.Invoice
	err := s.db.WithContext(ctx).Preload("Company").
		Where("organization_id = ? AND number LIKE ?", orgID, pattern).
		Order("number DESC").Limit(limit).Find(&rows).Error
	out := make([]SearchResult, 0, len(rows))
	for _, inv := range rows {
		sub := inv.Status
		if inv.Company != nil {
			sub = inv.Company.Name
		}
		out = append(out, SearchResult{Type: SearchTypeInvoice, ID: inv.ID, Title: inv.Number, Subtitle: sub, URL: "/invoices"})
	}
	return out, err
}

var searchSpecialChars = regexp.MustCompile(`[%_*"()\\]`)

// sanitizeSearchQuery strips LIKE wildcards and collapses whitespace
func sanitizeSearchQuery(query string) string {
	cleaned := strings.Join(strings.Fields(searchSpecialChars.ReplaceAllString(query, " ")), " ")
	if len([]rune(cleaned)) < 2 {
		return ""
	}
	return cleaned
}

// rankHit favours exact and prefix title matches
func rankHit(title, term string) float64 {
	t, q := strings.ToLower(title), strings.ToLower(term)
	switch {
	case t == q:
		return 3
	case strings.HasPrefix(t, q):
		return 2
	case strings.Contains(t, q):
		return 1
	}
	return 0.5
}

// highlight escapes text and wraps the first case-insensitive match in <mark>
func highlight(text, term string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(term))
	if idx < 0 || len(strings.ToLower(text)) != len(text) {
		return html.EscapeString(text)
	}
	end := idx + len(term)
	return html.EscapeString(text[:idx]) + "<mark>" + html.EscapeString(text[idx:end]) + "</mark>" + html.EscapeString(text[end:])
}
