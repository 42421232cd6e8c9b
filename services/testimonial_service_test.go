package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useLocalStorage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	previous := Storage
	Storage = NewLocalStorage(dir)
	t.Cleanup(func() { Storage = previous })
	return dir
}

func TestTestimonialLifecycle(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Initech"})

	item, err := CreateTestimonial(db, org.ID, TestimonialInput{
		CompanyID:   company.ID,
		ContactName: "Bill Lumbergh",
		Content:     `<p>Great <b>work</b></p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Rating)
	assert.False(t, item.IsPublished)
	assert.NotContains(t, item.Content, "script")
	assert.Contains(t, item.Content, "<b>work</b>")

	item, err = SetTestimonialPublished(db, org.ID, item.ID, true)
	require.NoError(t, err)
	assert.True(t, item.IsPublished)

	published, total, err := ListTestimonials(db, org.ID, company.ID, true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, published, 1)

	_, err = UpdateTestimonial(db, org.ID, item.ID, TestimonialInput{CompanyID: company.ID, ContactName: "Bill", Content: "ok", Rating: 6})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "rating")

	_, err = CreateTestimonial(db, org.ID, TestimonialInput{CompanyID: company.ID, ContactName: "X", Content: "<script>x</script>"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "content", "markup-only content is empty")
}

func TestAttachTestimonialMedia(t *testing.T) {
	dir := useLocalStorage(t)
	db := setupTestDB(t)
	org, _ := seedOrg(t, db)
	company, _ := CreateCompany(db, org.ID, CompanyInput{Name: "Hooli"})
	item, err := CreateTestimonial(db, org.ID, TestimonialInput{CompanyID: company.ID, ContactName: "Gavin", Content: "Fine"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = AttachTestimonialMedia(ctx, db, org.ID, item.ID, "notes.txt", strings.NewReader("x"), 1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	first, err := AttachTestimonialMedia(ctx, db, org.ID, item.ID, "photo.jpg", strings.NewReader("jpeg"), 4)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.MediaKey, ".jpg"))
	_, err = os.Stat(filepath.Join(dir, first.MediaKey))
	require.NoError(t, err)
	firstKey := first.MediaKey

	second, err := AttachTestimonialMedia(ctx, db, org.ID, item.ID, "clip.mp4", strings.NewReader("mp4"), 3)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, firstKey))
	assert.True(t, os.IsNotExist(err), "previous media is removed")

	require.NoError(t, DeleteTestimonial(ctx, db, org.ID, item.ID))
	_, err = os.Stat(filepath.Join(dir, second.MediaKey))
	assert.True(t, os.IsNotExist(err))
	_, err = GetTestimonial(db, org.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
