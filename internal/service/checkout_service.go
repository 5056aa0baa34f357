package service

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const (
	maxWebhookBody  = 1 << 20
	defaultPlanName = "Unknown Plan"
)

var (
	activationEvents   = map[string]bool{"ORDER_CREATED": true, "PAYMENT_RECEIVED": true, "COMPLETE": true}
	cancellationEvents = map[string]bool{"SUBSCRIPTION_CANCELLED": true, "REFUND": true}
)

// formField is one key/value pair in the order it was posted.
type formField struct {
	Key, Value string
}

// CheckoutService handles 2Checkout instant payment notifications.
type CheckoutService struct {
	secretKey string
	subs      SubscriptionService
	metrics   metrics.Metrics
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCheckoutService creates the webhook handler. An empty secretKey disables HASH
// verification, but a HASH field is still required.
func NewCheckoutService(secretKey string, subs SubscriptionService, m metrics.Metrics, logger zerolog.Logger) *CheckoutService {
	lg := logger.With().Str("service", "CheckoutService").Logger()
	if secretKey == "" {
		lg.Warn().Msg("No 2Checkout secret key configured; IPN signatures will not be verified")
	}
	return &CheckoutService{secretKey: secretKey, subs: subs, metrics: m, now: time.Now, logger: lg}
}

// HandleWebhook processes a form-encoded IPN and answers with a bare status.
func (s *CheckoutService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read IPN payload")
		s.respond(w, "", http.StatusBadRequest, "failed to read payload")
		return
	}
	fields, err := parseOrderedForm(string(body))
	if err != nil {
		s.logger.Error().Err(err).Msg("Unreadable IPN form")
		s.respond(w, "", http.StatusBadRequest, "invalid form")
		return
	}
	form := make(url.Values, len(fields))
	for _, f := range fields {
		form.Add(f.Key, f.Value)
	}
	eventType := strings.ToUpper(strings.TrimSpace(form.Get("IPN_EVENT_TYPE")))

	if _, signed := form["HASH"]; !signed {
		s.logger.Warn().Str("event_type", eventType).Msg("IPN without HASH rejected")
		s.respond(w, eventType, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.secretKey != "" {
		if err := verifyIPNHash(fields, form.Get("HASH"), s.secretKey); err != nil {
			s.logger.Warn().Err(err).Str("event_type", eventType).Msg("IPN signature verification failed")
			s.respond(w, eventType, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	userID := strings.TrimSpace(form.Get("EXTERNAL_REFERENCE"))
	if userID == "" {
		userID = strings.TrimSpace(form.Get("CUSTOMERID"))
	}
	if userID == "" {
		s.logger.Error().Str("event_type", eventType).Msg("No user id associated with payment")
		s.respond(w, eventType, http.StatusBadRequest, "missing user reference")
		return
	}

	ctx := r.Context()
	now := s.now().UTC()
	switch {
	case activationEvents[eventType]:
		a := model.SubscriptionActivation{
			UserID:         userID,
			SubscriptionID: valueOr(form.Get("IPN_LICENSE_ID_0"), "sub_"+strconv.FormatInt(now.UnixMilli(), 10)),
			PlanName:       valueOr(form.Get("IPN_PNAME_0"), defaultPlanName),
			TransactionID:  form.Get("TRANS_ID"),
			InvoiceID:      form.Get("IPN_INVOICE_ID"),
			PeriodStart:    now,
			PeriodEnd:      now.Add(BillingPeriod),
		}
		if err := s.subs.Activate(ctx, a); err != nil {
			s.respond(w, eventType, http.StatusInternalServerError, "failed to save subscription")
			return
		}
	case cancellationEvents[eventType]:
		if err := s.subs.MarkCancelledByProcessor(ctx, userID, now); err != nil {
			s.respond(w, eventType, http.StatusInternalServerError, "failed to cancel subscription")
			return
		}
		s.logger.Info().Str("user_id", userID).Str("event_type", eventType).Msg("Subscription cancelled by processor")
	default:
		s.logger.Info().Str("user_id", userID).Str("event_type", eventType).Msg("Ignoring IPN event")
	}
	s.respond(w, eventType, http.StatusOK, "OK")
}

func (s *CheckoutService) respond(w http.ResponseWriter, eventType string, status int, body string) {
	s.metrics.RecordWebhook(valueOr(eventType, "unknown"), status)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// parseOrderedForm decodes an application/x-www-form-urlencoded body keeping field order,
// which the IPN signature depends on.
func parseOrderedForm(body string) ([]formField, error) {
	var fields []formField
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}
		fields = append(fields, formField{Key: key, Value: value})
	}
	return fields, nil
}

// ipnHash computes the 2Checkout signature: HMAC-MD5 over every field value except
// HASH, in posted order, each prefixed with its length in bytes.
func ipnHash(fields []formField, secret string) string {
	mac := hmac.New(md5.New, []byte(secret))
	for _, f := range fields {
		if f.Key == "HASH" {
			continue
		}
		_, _ = io.WriteString(mac, strconv.Itoa(len(f.Value))+f.Value)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyIPNHash(fields []formField, got, secret string) error {
	if got == "" {
		return fmt.Errorf("%w: missing HASH", ErrInvalidSignature)
	}
	want := ipnHash(fields, secret)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}
