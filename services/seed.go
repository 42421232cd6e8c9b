package services

import (
	"log"
	"os"

	"biz_flow_app_go/models"

	"gorm.io/gorm"
)

// SeedOrganizationFromEnv bootstraps the first organization and its admin from
// SEED_ORG_NAME, SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD. It does nothing when
// the variables are missing or an organization already exists.
func SeedOrganizationFromEnv(db *gorm.DB) error {
	name := os.Getenv("SEED_ORG_NAME")
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if name == "" || email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Organization{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("[SEED] Organization already exists, skipping seed")
		return nil
	}

	adminName := os.Getenv("SEED_ADMIN_NAME")
	if adminName == "" {
		adminName = "Administrator"
	}
	org, _, err := CreateOrganizationWithAdmin(db, CreateOrganizationInput{
		Name:          name,
		Currency:      os.Getenv("SEED_ORG_CURRENCY"),
		AdminName:     adminName,
		AdminEmail:    email,
		AdminPassword: password,
		Language:      os.Getenv("SEED_ADMIN_LANGUAGE"),
	})
	if err != nil {
		return err
	}

	log.Printf("[SEED] Created organization %s with admin %s", org.Name, email)
	return nil
}
