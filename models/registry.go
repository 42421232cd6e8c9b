package models

// All returns every model migrated at startup
func All() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
		&Role{},
		&Session{},
		&PasswordResetToken{},
		&AuditLog{},
		&Notification{},
		&Company{},
		&Contact{},
		&Opportunity{},
		&Testimonial{},
		&Project{},
		&Deadline{},
		&BudgetLine{},
		&Employee{},
		&Timesheet{},
		&BankAccount{},
		&TransactionCategory{},
		&Transaction{},
		&Invoice{},
		&InvoiceLine{},
		&WidgetLayout{},
		&DashboardFilter{},
	}
}
