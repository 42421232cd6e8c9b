package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// TestimonialInput is the editable part of a testimonial
type TestimonialInput struct {
	CompanyID    string `json:"company_id"`
	ContactName  string `json:"contact_name"`
	ContactTitle string `json:"contact_title"`
	Content      string `json:"content"`
	Rating       int    `json:"rating"`
	IsPublished  bool   `json:"is_published"`
}

// Validate normalizes the input. A zero rating means five stars.
func (in *TestimonialInput) Validate() error {
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactTitle = strings.TrimSpace(in.ContactTitle)
	in.Content = SanitizeRichText(strings.TrimSpace(in.Content))
	if in.Rating == 0 {
		in.Rating = 5
	}

	v := &ValidationError{}
	requireField(v, "company_id", in.CompanyID)
	requireField(v, "contact_name", in.ContactName)
	requireField(v, "content", StripHTML(in.Content))
	checkRange(v, "rating", float64(in.Rating), 1, 5)
	return v.OrNil()
}

// ListTestimonials returns testimonials, optionally only the published ones of a company
func ListTestimonials(db *gorm.DB, organizationID, companyID string, publishedOnly bool, page, limit int) ([]models.Testimonial, int64, error) {
	query := db.Model(&models.Testimonial{}).Where("organization_id = ?", organizationID)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Testimonial
	err := query.Preload("Company").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// GetTestimonial loads a testimonial of the organization
func GetTestimonial(db *gorm.DB, organizationID, testimonialID string) (*models.Testimonial, error) {
	var item models.Testimonial
	if err := db.Where("organization_id = ? AND id = ?", organizationID, testimonialID).Preload("Company").First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// CreateTestimonial stores a testimonial for a company of the organization
func CreateTestimonial(db *gorm.DB, organizationID string, in TestimonialInput) (*models.Testimonial, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
		return nil, NewValidationError("company_id", "validation.unknown_company")
	}

	item := &models.Testimonial{
		OrganizationID: organizationID,
		CompanyID:      in.CompanyID,
		ContactName:    in.ContactName,
		ContactTitle:   in.ContactTitle,
		Content:        in.Content,
		Rating:         in.Rating,
		IsPublished:    in.IsPublished,
	}
	if err := db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create testimonial: %w", err)
	}
	return item, nil
}

// UpdateTestimonial replaces the editable fields, media is untouched
func UpdateTestimonial(db *gorm.DB, organizationID, testimonialID string, in TestimonialInput) (*models.Testimonial, error) {
	item, err := GetTestimonial(db, organizationID, testimonialID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := GetCompany(db, organizationID, in.CompanyID); err != nil {
		return nil, NewValidationError("company_id", "validation.unknown_company")
	}

	item.CompanyID = in.CompanyID
	item.ContactName = in.ContactName
	item.ContactTitle = in.ContactTitle
	item.Content = in.Content
	item.Rating = in.Rating
	item.IsPublished = in.IsPublished
	item.Company = nil

	if err := db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update testimonial: %w", err)
	}
	return item, nil
}

// SetTestimonialPublished publishes or unpublishes a testimonial
func SetTestimonialPublished(db *gorm.DB, organizationID, testimonialID string, published bool) (*models.Testimonial, error) {
	item, err := GetTestimonial(db, organizationID, testimonialID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(item).Update("is_published", published).Error; err != nil {
		return nil, err
	}
	item.IsPublished = published
	return item, nil
}

// AttachTestimonialMedia uploads a photo or video and links it to the testimonial.
// A previous media file is removed from storage.
func AttachTestimonialMedia(ctx context.Context, db *gorm.DB, organizationID, testimonialID, filename string, reader io.Reader, size int64) (*models.Testimonial, error) {
	if !IsMediaFile(filename) {
		return nil, NewValidationError("media", "validation.media_extension")
	}
	if size > MaxMediaSize {
		return nil, NewValidationError("media", "validation.file_too_large")
	}
	item, err := GetTestimonial(db, organizationID, testimonialID)
	if err != nil {
		return nil, err
	}

	key := GenerateTestimonialMediaKey(organizationID, filename)
	result, err := Storage.UploadReader(ctx, reader, key, ContentTypeFor(filename), size)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	previous := item.MediaKey
	err = db.Model(item).Updates(map[string]interface{}{"media_key": result.Key, "media_url": result.URL}).Error
	if err != nil {
		_ = Storage.Delete(ctx, result.Key)
		return nil, err
	}
	if previous != "" {
		if err := Storage.Delete(ctx, previous); err != nil {
			log.Printf("[WARNING] failed to delete previous testimonial media %s: %v", previous, err)
		}
	}
	item.MediaKey = result.Key
	item.MediaURL = result.URL
	return item, nil
}

// DeleteTestimonial soft-deletes a testimonial and removes its media
func DeleteTestimonial(ctx context.Context, db *gorm.DB, organizationID, testimonialID string) error {
	item, err := GetTestimonial(db, organizationID, testimonialID)
	if err != nil {
		return err
	}
	if err := db.Delete(item).Error; err != nil {
		return err
	}
	if item.MediaKey != "" && Storage != nil {
		if err := Storage.Delete(ctx, item.MediaKey); err != nil {
			log.Printf("[WARNING] failed to delete testimonial media %s: %v", item.MediaKey, err)
		}
	}
	return nil
}
