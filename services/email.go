package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"path"
	"strings"
	texttemplate "text/template"

	"biz_flow_app_go/config"
	"biz_flow_app_go/services/i18n"

	"github.com/resend/resend-go/v2"
)

//go:embed email_templates/*
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file sent along with an email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// buildEmail renders the template in the requested language, falling back to the base (English) template
func buildEmail(templateName, lang string, data interface{}, toEmail string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, lang, data)
	if err != nil {
		log.Printf("Error loading %s email template for lang %s: %v", templateName, lang, err)
	}
	return &Email{
		To:       []string{toEmail},
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// loadTemplate renders templateName_lang.{html,txt}, or templateName.{html,txt} when no localized file exists
func loadTemplate(templateName, lang string, data interface{}) (string, string, error) {
	read := func(ext string) (string, []byte, error) {
		name := path.Join("email_templates", fmt.Sprintf("%s_%s%s", templateName, lang, ext))
		content, err := emailTemplates.ReadFile(name)
		if err != nil {
			name = path.Join("email_templates", templateName+ext)
			content, err = emailTemplates.ReadFile(name)
			if err != nil {
				return "", nil, fmt.Errorf("failed to read template %s: %w", name, err)
			}
		}
		return name, content, nil
	}

	name, content, err := read(".html")
	if err != nil {
		return "", "", err
	}
	htmlTmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	name, content, err = read(".txt")
	if err != nil {
		return "", "", err
	}
	textTmpl, err := texttemplate.New(name).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	if email.HTMLBody == "" && email.TextBody == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode, not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	for _, a := range email.Attachments {
		log.Printf("Attachment: %s (%d bytes)", a.Filename, len(a.Content))
	}
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// SendEmailAsync sends an email in a goroutine so handlers do not block on the provider
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := *email
	emailCopy.To = append([]string{}, email.To...)
	emailCopy.Attachments = append([]EmailAttachment{}, email.Attachments...)

	go func(email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}(&emailCopy)
}

// WelcomeEmailData contains data for the welcome email template
type WelcomeEmailData struct {
	UserName         string
	OrganizationName string
	LoginURL         string
}

// BuildWelcomeEmail creates a welcome email for new users
func BuildWelcomeEmail(userEmail string, data WelcomeEmailData, lang string) *Email {
	email := buildEmail("welcome", lang, data, userEmail)
	email.Subject = i18n.Translate(lang, "email.subject.welcome", map[string]interface{}{"organization": data.OrganizationName})
	return email
}

// DeadlineReminderEmailData contains data for the deadline reminder template
type DeadlineReminderEmailData struct {
	UserName      string
	DeadlineTitle string
	ProjectName   string
	DueDate       string
	ProjectURL    string
}

// BuildDeadlineReminderEmail creates a reminder for an upcoming project deadline
func BuildDeadlineReminderEmail(userEmail string, data DeadlineReminderEmailData, lang string) *Email {
	email := buildEmail("deadline_reminder", lang, data, userEmail)
	email.Subject = i18n.Translate(lang, "email.subject.deadline_reminder", map[string]interface{}{"title": data.DeadlineTitle})
	return email
}

// InvoiceEmailData contains data for the invoice email template
type InvoiceEmailData struct {
	Number           string
	OrganizationName string
	Total            string
	DueDate          string
}

// BuildInvoiceEmail creates the email carrying an invoice PDF
func BuildInvoiceEmail(toEmail string, data InvoiceEmailData, pdf []byte, lang string) *Email {
	email := buildEmail("invoice", lang, data, toEmail)
	email.Subject = i18n.Translate(lang, "email.subject.invoice", map[string]interface{}{"number": data.Number, "organization": data.OrganizationName})
	email.Attachments = []EmailAttachment{{
		Filename:    data.Number + ".pdf",
		ContentType: "application/pdf",
		Content:     pdf,
	}}
	return email
}

// PasswordResetEmailData contains data for the password reset template
type PasswordResetEmailData struct {
	UserName string
	ResetURL string
	Hours    int
}

// BuildPasswordResetEmail creates the email carrying a reset link
func BuildPasswordResetEmail(toEmail string, data PasswordResetEmailData, lang string) *Email {
	email := buildEmail("password_reset", lang, data, toEmail)
	email.Subject = i18n.Translate(lang, "email.subject.password_reset")
	return email
}
