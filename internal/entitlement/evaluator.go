// Package entitlement decides whether a user may download an asset under their
// subscription plan. Everything here is a pure function of its inputs: callers
// load the subscription and the user's download ledger and pass them in.
package entitlement

import (
	"strings"
	"time"
)

// AssetType distinguishes the two kinds of downloadable assets.
type AssetType string

const (
	AssetPattern AssetType = "pattern"
	AssetMotion  AssetType = "motion"
)

// ParseAssetType accepts the stored asset type values and the plural forms used in URLs.
func ParseAssetType(raw string) (AssetType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pattern", "patterns":
		return AssetPattern, true
	case "motion", "motion-video", "motion-videos", "motion_video", "motion_videos":
		return AssetMotion, true
	default:
		return "", false
	}
}

// Reason explains a denied download.
type Reason string

const (
	ReasonFreeQuotaExhausted    Reason = "FreeQuotaExhausted"
	ReasonMonthlyLimitReached   Reason = "MonthlyLimitReached"
	ReasonPlanExcludesAssetType Reason = "PlanExcludesAssetType"
	ReasonSubscriptionInactive  Reason = "SubscriptionInactive"
)

// Message is the text shown to the user for a denial.
func (r Reason) Message() string {
	switch r {
	case ReasonFreeQuotaExhausted:
		return "Your free studio account is limited to 1 unique pattern and 1 unique motion asset. Upgrade now to unblock all downloads."
	case ReasonMonthlyLimitReached:
		return "You have reached your plan's download limit for this billing period. Upgrade for more downloads."
	case ReasonPlanExcludesAssetType:
		return "Your plan does not include motion graphics. Upgrade to All Access to download motion assets."
	case ReasonSubscriptionInactive:
		return "Your subscription is not active. Renew your plan to continue downloading."
	default:
		return ""
	}
}

// Subscription is the subset of a subscription row the evaluator needs. Plan and
// Status are the raw stored strings.
type Subscription struct {
	Plan               string
	Status             string
	StartDate          time.Time
	CurrentPeriodStart time.Time
	EndDate            *time.Time
	IsCancelled        bool
}

// LedgerEntry is one recorded download.
type LedgerEntry struct {
	AssetID   string
	AssetType AssetType
	Timestamp time.Time
}

// Decision is the outcome of an entitlement check. Reason is empty when Allow is true.
type Decision struct {
	Allow  bool
	Reason Reason
}

func allow() Decision { return Decision{Allow: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// NormalizeAssetID trims and upper-cases an asset id for quota matching.
func NormalizeAssetID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Resolve returns the plan and status of a subscription. A nil subscription is Free and Active.
func Resolve(sub *Subscription) (Plan, Status) {
	if sub == nil {
		return PlanFree, StatusActive
	}
	return ParsePlan(sub.Plan), ParseStatus(sub.Status)
}

// PeriodStart is the instant from which paid-plan usage is counted: the current
// period start when known, then the subscription start. The zero time counts the
// whole ledger.
func PeriodStart(sub *Subscription) time.Time {
	if sub == nil {
		return time.Time{}
	}
	if !sub.CurrentPeriodStart.IsZero() {
		return sub.CurrentPeriodStart
	}
	return sub.StartDate
}

// CanDownload decides whether the holder of sub, with the given download ledger,
// may download the asset.
func CanDownload(sub *Subscription, ledger []LedgerEntry, assetID string, assetType AssetType) Decision {
	target := NormalizeAssetID(assetID)
	plan, status := Resolve(sub)

	if plan.IsPaid() && status != StatusActive {
		return deny(ReasonSubscriptionInactive)
	}

	// A plan without the asset type denies it even for assets owned under an earlier plan.
	policy := PolicyFor(plan)
	limit := policy.Limit(assetType)
	if limit == 0 {
		return deny(ReasonPlanExcludesAssetType)
	}

	all := distinctByType(ledger, time.Time{})
	if _, owned := all[assetType][target]; owned {
		return allow()
	}

	if policy.IsFree {
		used := len(all[assetType])
		total := len(all[AssetPattern]) + len(all[AssetMotion])
		if used >= freePerTypeLimit || total >= freeAggregateCap {
			return deny(ReasonFreeQuotaExhausted)
		}
		return allow()
	}

	if limit == Unlimited {
		return allow()
	}

	inPeriod := distinctByType(ledger, PeriodStart(sub))
	if len(inPeriod[assetType]) >= limit {
		return deny(ReasonMonthlyLimitReached)
	}
	return allow()
}

// distinctByType groups normalized asset ids by type, keeping entries at or after since.
func distinctByType(ledger []LedgerEntry, since time.Time) map[AssetType]map[string]struct{} {
	out := map[AssetType]map[string]struct{}{
		AssetPattern: {},
		AssetMotion:  {},
	}
	for _, e := range ledger {
		if e.Timestamp.Before(since) {
			continue
		}
		ids, ok := out[e.AssetType]
		if !ok {
			continue
		}
		ids[NormalizeAssetID(e.AssetID)] = struct{}{}
	}
	return out
}
