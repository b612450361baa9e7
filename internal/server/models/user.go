package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time

	// Billing collaborator fields, written by the external checkout flow
	// and only read here.
	StripeCustomerID       sql.NullString
	StripeSubscriptionID   sql.NullString
	StripePriceID          sql.NullString
	StripeCurrentPeriodEnd sql.NullTime
}
