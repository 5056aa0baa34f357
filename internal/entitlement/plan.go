package entitlement

import "strings"

// Plan is a subscription tier.
type Plan int

const (
	PlanFree Plan = iota
	PlanBasic
	PlanPro
	PlanAllAccess
	PlanEnterprise
)

var planNames = map[Plan]string{
	PlanFree:       "Free",
	PlanBasic:      "Basic",
	PlanPro:        "Pro",
	PlanAllAccess:  "All Access",
	PlanEnterprise: "Enterprise",
}

func (p Plan) String() string {
	if name, ok := planNames[p]; ok {
		return name
	}
	return planNames[PlanFree]
}

// IsPaid reports whether the plan carries billing state that can lapse.
func (p Plan) IsPaid() bool {
	return p != PlanFree
}

// ParsePlan maps a plan name from the store onto a Plan. The match ignores case,
// surrounding whitespace and the separator in "All Access". Anything it does not
// recognize is Free.
func ParsePlan(raw string) Plan {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "basic":
		return PlanBasic
	case "pro":
		return PlanPro
	case "allaccess":
		return PlanAllAccess
	case "enterprise":
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// Status is the billing state of a subscription.
type Status int

const (
	StatusActive Status = iota
	StatusInactive
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusPending:
		return "Pending"
	default:
		return "Inactive"
	}
}

// ParseStatus maps a stored status onto a Status. An empty status is Active so
// that rows written before the column existed keep working. Unknown values,
// including "canceled" and "past_due", are Inactive.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "active":
		return StatusActive
	case "pending":
		return StatusPending
	default:
		return StatusInactive
	}
}

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Policy holds the per-period download limits of a plan.
type Policy struct {
	Plan         Plan
	PatternLimit int
	MotionLimit  int
	IsFree       bool
}

// Limit returns the limit for the given asset type.
func (p Policy) Limit(t AssetType) int {
	if t == AssetMotion {
		return p.MotionLimit
	}
	return p.PatternLimit
}

const (
	freePerTypeLimit  = 1
	freeAggregateCap  = 2
	proPatternLimit   = 15
	allAccessPatterns = 20
	allAccessMotion   = 10
)

// PolicyFor returns the quota policy of a plan.
func PolicyFor(plan Plan) Policy {
	switch plan {
	case PlanPro:
		return Policy{Plan: plan, PatternLimit: proPatternLimit, MotionLimit: 0}
	case PlanAllAccess:
		return Policy{Plan: plan, PatternLimit: allAccessPatterns, MotionLimit: allAccessMotion}
	case PlanBasic, PlanEnterprise:
		return Policy{Plan: plan, PatternLimit: Unlimited, MotionLimit: Unlimited}
	default:
		return Policy{Plan: PlanFree, PatternLimit: freePerTypeLimit, MotionLimit: freePerTypeLimit, IsFree: true}
	}
}
