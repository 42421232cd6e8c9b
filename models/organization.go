package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the tenant: every business record belongs to exactly one.
type Organization struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name                 string `gorm:"not null" json:"name"`
	Slug                 string `gorm:"uniqueIndex;not null" json:"slug"`
	LegalID              string `json:"legal_id"`
	Currency             string `gorm:"not null;default:EUR" json:"currency"`
	Timezone             string `gorm:"not null;default:Europe/Paris" json:"timezone"`
	FiscalYearStartMonth int    `gorm:"not null;default:1" json:"fiscal_year_start_month"`
	BillingEmail         string `json:"billing_email"`
	Address              string `json:"address"`
	IBAN                 string `json:"iban"`

	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

// BeforeCreate hook to generate UUID and slug
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Slug == "" {
		o.Slug = uniqueSlug(tx, Slugify(o.Name))
	}
	if o.Currency == "" {
		o.Currency = "EUR"
	}
	return nil
}

// Slugify creates a URL-friendly slug, limited to 50 characters
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		slug = "org"
	}
	return slug
}

func uniqueSlug(tx *gorm.DB, base string) string {
	slug := base
	for counter := 1; ; counter++ {
		var count int64
		tx.Model(&Organization{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = base + "-" + strconv.Itoa(counter)
	}
}

func (Organization) TableName() string {
	return "organizations"
}
