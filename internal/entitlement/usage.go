package entitlement

import "time"

// TypeUsage is the consumption of one asset type against its limit.
type TypeUsage struct {
	Used      int
	Limit     int
	Remaining int
}

// Usage summarizes a user's quota position for display.
type Usage struct {
	Plan        Plan
	Status      Status
	PeriodStart time.Time
	Patterns    TypeUsage
	Motion      TypeUsage
	// TotalDistinct counts distinct assets of both types over the whole ledger.
	TotalDistinct int
}

// Summarize computes the same counts CanDownload uses. Free plans count the whole
// ledger; paid plans count from PeriodStart.
func Summarize(sub *Subscription, ledger []LedgerEntry) Usage {
	plan, status := Resolve(sub)
	policy := PolicyFor(plan)

	all := distinctByType(ledger, time.Time{})
	u := Usage{
		Plan:          plan,
		Status:        status,
		TotalDistinct: len(all[AssetPattern]) + len(all[AssetMotion]),
	}

	counted := all
	if !policy.IsFree {
		u.PeriodStart = PeriodStart(sub)
		counted = distinctByType(ledger, u.PeriodStart)
	}

	for _, t := range []AssetType{AssetPattern, AssetMotion} {
		tu := TypeUsage{Used: len(counted[t]), Limit: policy.Limit(t)}
		switch {
		case plan.IsPaid() && status != StatusActive:
			tu.Remaining = 0
		case tu.Limit == Unlimited:
			tu.Remaining = Unlimited
		default:
			tu.Remaining = max(tu.Limit-tu.Used, 0)
			if policy.IsFree {
				tu.Remaining = min(tu.Remaining, max(freeAggregateCap-u.TotalDistinct, 0))
			}
		}
		if t == AssetMotion {
			u.Motion = tu
		} else {
			u.Patterns = tu
		}
	}
	return u
}
