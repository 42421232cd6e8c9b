package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldChecks(t *testing.T) {
	v := &ValidationError{}
	requireField(v, "name", "  ")
	checkEmail(v, "email", "not-an-email")
	checkEmail(v, "other_email", "")
	checkRange(v, "rating", 6, 1, 5)
	checkNonNegative(v, "amount", -1)
	start, end := day(2026, 3, 10), day(2026, 3, 1)
	checkDateOrder(v, "end_date", &start, &end)

	assert.Equal(t, map[string]string{
		"name":     "validation.required",
		"email":    "validation.email",
		"rating":   "validation.range",
		"amount":   "validation.non_negative",
		"end_date": "validation.date_order",
	}, v.Fields)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, day(2026, 10, 17), d)

	d, err = ParseDate("2026-10-17T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Hour())

	_, err = ParseDate("17/10/2026")
	assert.Error(t, err)
}

func TestPagination(t *testing.T) {
	page, limit := Pagination(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = Pagination(2, 500)
	assert.Equal(t, 100, limit)

	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(0, 20))
}
