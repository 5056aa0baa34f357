package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, subscription_id, plan_name, status, created_at,
        current_period_start, current_period_end, is_cancelled, cancelled_at,
        transaction_id, invoice_id, updated_at`

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetByUserID returns the user's subscription, or nil if the user never paid.
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	// Activate creates or renews the user's single subscription row.
	Activate(ctx context.Context, a model.SubscriptionActivation) error
	// MarkCancelledByProcessor records a cancellation or refund reported by the processor.
	MarkCancelledByProcessor(ctx context.Context, userID string, at time.Time) error
	// RequestCancellation sets the cancellation flag only; access lasts until the period ends.
	RequestCancellation(ctx context.Context, userID string, at time.Time) error
	// ExpireLapsed marks paid subscriptions whose period ended before cutoff as inactive.
	ExpireLapsed(ctx context.Context, cutoff time.Time) (int64, error)
	ListAll(ctx context.Context) ([]model.Subscription, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	sub, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Subscription])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan subscription for user %s: %w", userID, err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) Activate(ctx context.Context, a model.SubscriptionActivation) error {
	const q = `
        INSERT INTO subscriptions (user_id, subscription_id, plan_name, status, transaction_id, invoice_id,
                                   current_period_start, current_period_end, is_cancelled, cancelled_at,
                                   created_at, updated_at)
        VALUES ($1, $2, $3, 'active', NULLIF($4, ''), NULLIF($5, ''), $6, $7, FALSE, NULL, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET subscription_id = EXCLUDED.subscription_id,
            plan_name = EXCLUDED.plan_name,
            status = 'active',
            transaction_id = EXCLUDED.transaction_id,
            invoice_id = EXCLUDED.invoice_id,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            is_cancelled = FALSE,
            cancelled_at = NULL,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q, a.UserID, a.SubscriptionID, a.PlanName, a.TransactionID, a.InvoiceID, a.PeriodStart, a.PeriodEnd)
	if err != nil {
		return fmt.Errorf("activate subscription %s for user %s: %w", a.SubscriptionID, a.UserID, err)
	}
	return nil
}

func (r *subscriptionRepo) MarkCancelledByProcessor(ctx context.Context, userID string, at time.Time) error {
	const q = `
        UPDATE subscriptions
        SET is_cancelled = TRUE,
            status = 'canceled',
            cancelled_at = $2,
            updated_at = NOW()
        WHERE user_id = $1;
    `
	if _, err := r.pool.Exec(ctx, q, userID, at); err != nil {
		return fmt.Errorf("cancel subscription for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) RequestCancellation(ctx context.Context, userID string, at time.Time) error {
	const q = `
        UPDATE subscriptions
        SET is_cancelled = TRUE,
            cancelled_at = $2,
            updated_at = NOW()
        WHERE user_id = $1;
    `
	tag, err := r.pool.Exec(ctx, q, userID, at)
	if err != nil {
		return fmt.Errorf("request cancellation for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ExpireLapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	// Free rows are never written by the webhook, so every row with a period end is paid.
	const q = `
        UPDATE subscriptions
        SET status = 'inactive',
            updated_at = NOW()
        WHERE current_period_end IS NOT NULL
          AND current_period_end < $1
          AND lower(coalesce(status, 'active')) IN ('active', 'canceled', 'cancelled');
    `
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions ended before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) ListAll(ctx context.Context) ([]model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	subs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Subscription])
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return subs, nil
}
