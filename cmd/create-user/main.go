package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"biz_flow_app_go/config"
	"biz_flow_app_go/db"
	"biz_flow_app_go/models"
	"biz_flow_app_go/services"

	"golang.org/x/term"
	"gorm.io/gorm"
)

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	value, _ := reader.ReadString('\n')
	return strings.TrimSpace(value)
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")
	fmt.Println()

	orgName := prompt(reader, "Organization: ")
	name := prompt(reader, "Name: ")
	email := prompt(reader, "Email: ")

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	if orgName == "" || name == "" || email == "" || password == "" {
		log.Fatal("Organization, name, email, and password are required")
	}

	var org models.Organization
	err = db.DB.Where("name = ?", orgName).First(&org).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// New organization: the user becomes its admin
		created, user, err := services.CreateOrganizationWithAdmin(db.DB, services.CreateOrganizationInput{
			Name:          orgName,
			Currency:      cfg.DefaultCurrency,
			AdminName:     name,
			AdminEmail:    email,
			AdminPassword: password,
			Language:      cfg.DefaultLocale,
		})
		if err != nil {
			log.Fatalf("Failed to create organization: %v", err)
		}
		report(created, user, cfg)
	case err != nil:
		log.Fatalf("Failed to look up organization: %v", err)
	default:
		role := prompt(reader, fmt.Sprintf("Role [%s]: ", models.RoleEmployee))
		if role == "" {
			role = models.RoleEmployee
		}
		user, err := services.CreateUser(db.DB, org.ID, services.CreateUserInput{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     role,
			Language: cfg.DefaultLocale,
		})
		if err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		report(&org, user, cfg)
	}
}

func report(org *models.Organization, user *models.User, cfg *config.Config) {
	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Printf("  Organization: %s\n", org.Name)
	fmt.Println()
	fmt.Printf("The user can now log in at %s/login\n", strings.TrimRight(cfg.AppURL, "/"))
}
