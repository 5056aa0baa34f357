package service

import "errors"

var (
	ErrAssetNotFound          = errors.New("asset_not_found")
	ErrEntitlementUnavailable = errors.New("entitlement_unavailable")
	ErrTransferInterrupted    = errors.New("transfer_interrupted")
	ErrMissingPublishInput    = errors.New("missing_publish_input")
	ErrWatermarkFailed        = errors.New("watermark_failed")
	ErrInvalidSignature       = errors.New("invalid_signature")
	ErrInvalidCredentials     = errors.New("invalid_credentials")
	ErrIdentityUnavailable    = errors.New("identity_unavailable")
	ErrProfileNotFound        = errors.New("profile_not_found")
	ErrNoSubscription         = errors.New("no_subscription")
	ErrForbidden              = errors.New("forbidden")
)

// TransferInterruptedMessage is shown to users when a transfer handle could not be issued.
const TransferInterruptedMessage = "Transfer was interrupted. Please check your connection."
