package model

import (
	"time"

	"storefront/internal/entitlement"
)

// Subscription is a row of the subscriptions table. PlanName and Status are stored
// as written by the payment webhook and are parsed by the entitlement package. Both
// columns are nullable.
type Subscription struct {
	ID                 string     `db:"id"`
	UserID             string     `db:"user_id"`
	SubscriptionID     *string    `db:"subscription_id"`
	PlanName           *string    `db:"plan_name"`
	Status             *string    `db:"status"`
	CreatedAt          time.Time  `db:"created_at"`
	CurrentPeriodStart *time.Time `db:"current_period_start"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end"`
	IsCancelled        bool       `db:"is_cancelled"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	TransactionID      *string    `db:"transaction_id"`
	InvoiceID          *string    `db:"invoice_id"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// Entitlement converts the row into the evaluator's view of it. A nil row stays nil.
func (s *Subscription) Entitlement() *entitlement.Subscription {
	if s == nil {
		return nil
	}
	out := &entitlement.Subscription{
		Plan:        s.Plan(),
		StartDate:   s.CreatedAt,
		EndDate:     s.CurrentPeriodEnd,
		IsCancelled: s.IsCancelled,
	}
	if s.Status != nil {
		out.Status = *s.Status
	}
	if s.CurrentPeriodStart != nil {
		out.CurrentPeriodStart = *s.CurrentPeriodStart
	}
	return out
}

// Plan returns the stored plan name, or "" when the column is NULL.
func (s *Subscription) Plan() string {
	if s == nil || s.PlanName == nil {
		return ""
	}
	return *s.PlanName
}

// SubscriptionActivation carries the fields written when a payment succeeds.
type SubscriptionActivation struct {
	UserID         string
	SubscriptionID string
	PlanName       string
	TransactionID  string
	InvoiceID      string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}
