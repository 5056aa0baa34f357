package entitlement_test

import (
	"fmt"
	"testing"
	"time"

	"storefront/internal/entitlement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(id string, t entitlement.AssetType, at time.Time) entitlement.LedgerEntry {
	return entitlement.LedgerEntry{AssetID: id, AssetType: t, Timestamp: at}
}

func paid(plan string, start time.Time) *entitlement.Subscription {
	return &entitlement.Subscription{Plan: plan, Status: "active", StartDate: start}
}

func patterns(n int, prefix string, at time.Time) []entitlement.LedgerEntry {
	out := make([]entitlement.LedgerEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entry(fmt.Sprintf("%s%d", prefix, i), entitlement.AssetPattern, at.Add(time.Duration(i)*time.Hour)))
	}
	return out
}

func TestCanDownload_ReDownloadAlwaysAllowed(t *testing.T) {
	after := periodStart.Add(24 * time.Hour)
	cases := []struct {
		name   string
		sub    *entitlement.Subscription
		ledger []entitlement.LedgerEntry
		asset  string
		typ    entitlement.AssetType
	}{
		{
			name: "free user over aggregate cap",
			sub:  nil,
			ledger: []entitlement.LedgerEntry{
				entry("P1", entitlement.AssetPattern, after),
				entry("M1", entitlement.AssetMotion, after),
				entry("P9", entitlement.AssetPattern, after),
			},
			asset: "P1",
			typ:   entitlement.AssetPattern,
		},
		{
			name:   "pro user at monthly limit",
			sub:    paid("Pro", periodStart),
			ledger: patterns(15, "P", after),
			asset:  "P3",
			typ:    entitlement.AssetPattern,
		},
		{
			name:   "all access user at pattern limit",
			sub:    paid("All Access", periodStart),
			ledger: append(patterns(20, "P", after), entry("m0", entitlement.AssetMotion, after)),
			asset:  "P19",
			typ:    entitlement.AssetPattern,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := entitlement.CanDownload(tc.sub, tc.ledger, tc.asset, tc.typ)
			assert.True(t, d.Allow)
			assert.Empty(t, d.Reason)
		})
	}
}

func TestCanDownload_OwnershipIsPerType(t *testing.T) {
	ledger := []entitlement.LedgerEntry{entry("X1", entitlement.AssetPattern, periodStart)}

	d := entitlement.CanDownload(nil, ledger, "X1", entitlement.AssetMotion)
	assert.True(t, d.Allow, "one pattern used, motion slot still free")

	ledger = append(ledger, entry("M1", entitlement.AssetMotion, periodStart))
	d = entitlement.CanDownload(nil, ledger, "X1", entitlement.AssetMotion)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonFreeQuotaExhausted, d.Reason)
}

func TestCanDownload_FreeAggregateCap(t *testing.T) {
	var ledger []entitlement.LedgerEntry
	now := time.Now()

	d := entitlement.CanDownload(nil, ledger, "P1", entitlement.AssetPattern)
	require.True(t, d.Allow)
	ledger = append(ledger, entry("P1", entitlement.AssetPattern, now))

	d = entitlement.CanDownload(nil, ledger, "M1", entitlement.AssetMotion)
	require.True(t, d.Allow)
	ledger = append(ledger, entry("M1", entitlement.AssetMotion, now))

	for _, typ := range []entitlement.AssetType{entitlement.AssetPattern, entitlement.AssetMotion} {
		d = entitlement.CanDownload(nil, ledger, "NEW", typ)
		assert.False(t, d.Allow)
		assert.Equal(t, entitlement.ReasonFreeQuotaExhausted, d.Reason)
	}
}

func TestCanDownload_FreePerTypeCap(t *testing.T) {
	ledger := []entitlement.LedgerEntry{entry("P1", entitlement.AssetPattern, time.Now())}
	sub := &entitlement.Subscription{Plan: "free"}

	d := entitlement.CanDownload(sub, ledger, "P2", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonFreeQuotaExhausted, d.Reason)
}

func TestCanDownload_FreeIgnoresStatus(t *testing.T) {
	sub := &entitlement.Subscription{Plan: "Free", Status: "Inactive"}
	d := entitlement.CanDownload(sub, nil, "P1", entitlement.AssetPattern)
	assert.True(t, d.Allow)
}

func TestCanDownload_ProExcludesMotion(t *testing.T) {
	sub := paid("Pro", periodStart)
	histories := map[string][]entitlement.LedgerEntry{
		"empty":           nil,
		"some patterns":   patterns(3, "P", periodStart),
		"prior motion":    {entry("M1", entitlement.AssetMotion, periodStart.Add(-time.Hour))},
		"owned motion":    {entry("M2", entitlement.AssetMotion, periodStart.Add(-time.Hour))},
		"owned in period": {entry("m2", entitlement.AssetMotion, periodStart.Add(time.Hour))},
		"at pattern cap":  patterns(15, "P", periodStart),
	}
	for name, ledger := range histories {
		t.Run(name, func(t *testing.T) {
			d := entitlement.CanDownload(sub, ledger, "M2", entitlement.AssetMotion)
			assert.False(t, d.Allow)
			assert.Equal(t, entitlement.ReasonPlanExcludesAssetType, d.Reason)
		})
	}
}

func TestCanDownload_PeriodAnchoredCounting(t *testing.T) {
	sub := paid("AllAccess", periodStart)
	before := periodStart.Add(-48 * time.Hour)
	after := periodStart.Add(48 * time.Hour)

	var ledger []entitlement.LedgerEntry
	ledger = append(ledger, patterns(30, "OLD", before)...)
	for i := 0; i < 25; i++ {
		ledger = append(ledger, entry(fmt.Sprintf("OLDM%d", i), entitlement.AssetMotion, before))
	}

	assert.True(t, entitlement.CanDownload(sub, ledger, "NEWP", entitlement.AssetPattern).Allow)
	assert.True(t, entitlement.CanDownload(sub, ledger, "NEWM", entitlement.AssetMotion).Allow)

	ledger = append(ledger, patterns(19, "CUR", after)...)
	assert.True(t, entitlement.CanDownload(sub, ledger, "NEWP", entitlement.AssetPattern).Allow)
	ledger = append(ledger, entry("CUR19", entitlement.AssetPattern, after))
	d := entitlement.CanDownload(sub, ledger, "NEWP", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonMonthlyLimitReached, d.Reason)

	for i := 0; i < 10; i++ {
		ledger = append(ledger, entry(fmt.Sprintf("CURM%d", i), entitlement.AssetMotion, after))
	}
	d = entitlement.CanDownload(sub, ledger, "NEWM", entitlement.AssetMotion)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonMonthlyLimitReached, d.Reason)
}

func TestCanDownload_CurrentPeriodStartWins(t *testing.T) {
	renewed := periodStart.AddDate(0, 1, 0)
	sub := paid("Pro", periodStart)
	sub.CurrentPeriodStart = renewed
	ledger := patterns(15, "P", periodStart.Add(time.Hour))

	assert.True(t, entitlement.CanDownload(sub, ledger, "NEW", entitlement.AssetPattern).Allow)
}

func TestCanDownload_MissingStartCountsWholeLedger(t *testing.T) {
	sub := &entitlement.Subscription{Plan: "Pro", Status: "Active"}
	ledger := patterns(15, "P", time.Unix(0, 0).Add(time.Hour))

	d := entitlement.CanDownload(sub, ledger, "NEW", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonMonthlyLimitReached, d.Reason)
}

func TestCanDownload_Normalization(t *testing.T) {
	ledger := []entitlement.LedgerEntry{
		entry("ab12", entitlement.AssetPattern, time.Now()),
		entry("M1", entitlement.AssetMotion, time.Now()),
	}
	for _, id := range []string{"ab12", "AB12", " ab12 ", "\tAb12\n"} {
		d := entitlement.CanDownload(nil, ledger, id, entitlement.AssetPattern)
		assert.True(t, d.Allow, "id %q should match the owned asset", id)
	}

	dup := []entitlement.LedgerEntry{
		entry("ab12", entitlement.AssetPattern, time.Now()),
		entry(" AB12", entitlement.AssetPattern, time.Now()),
	}
	assert.True(t, entitlement.CanDownload(nil, dup, "M9", entitlement.AssetMotion).Allow,
		"variants of one id count as a single distinct asset")
}

func TestCanDownload_PaidInactiveIsDenied(t *testing.T) {
	for _, status := range []string{"Inactive", "pending", "canceled", "past_due", "bogus"} {
		t.Run(status, func(t *testing.T) {
			sub := &entitlement.Subscription{Plan: "Enterprise", Status: status}
			d := entitlement.CanDownload(sub, nil, "P1", entitlement.AssetPattern)
			assert.False(t, d.Allow)
			assert.Equal(t, entitlement.ReasonSubscriptionInactive, d.Reason)
		})
	}
}

func TestCanDownload_InactiveBlocksEvenOwnedAssets(t *testing.T) {
	sub := &entitlement.Subscription{Plan: "Pro", Status: "Inactive"}
	ledger := []entitlement.LedgerEntry{entry("P1", entitlement.AssetPattern, time.Now())}

	d := entitlement.CanDownload(sub, ledger, "P1", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonSubscriptionInactive, d.Reason)
}

func TestCanDownload_MissingStatusIsActive(t *testing.T) {
	sub := &entitlement.Subscription{Plan: "Pro", StartDate: periodStart}
	assert.True(t, entitlement.CanDownload(sub, nil, "P1", entitlement.AssetPattern).Allow)
}

func TestCanDownload_UnlimitedPlans(t *testing.T) {
	ledger := patterns(500, "P", periodStart)
	for _, plan := range []string{"Enterprise", "Basic"} {
		sub := paid(plan, periodStart)
		assert.True(t, entitlement.CanDownload(sub, ledger, "NEW", entitlement.AssetPattern).Allow, plan)
		assert.True(t, entitlement.CanDownload(sub, ledger, "NEWM", entitlement.AssetMotion).Allow, plan)
	}
}

func TestCanDownload_UnknownPlanIsFree(t *testing.T) {
	sub := &entitlement.Subscription{Plan: "Unknown Plan", Status: "active"}
	ledger := []entitlement.LedgerEntry{entry("P1", entitlement.AssetPattern, time.Now())}

	d := entitlement.CanDownload(sub, ledger, "P2", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonFreeQuotaExhausted, d.Reason)
}

func TestScenarioA_FreeUserJourney(t *testing.T) {
	var ledger []entitlement.LedgerEntry
	download := func(id string, typ entitlement.AssetType) entitlement.Decision {
		d := entitlement.CanDownload(nil, ledger, id, typ)
		if d.Allow {
			ledger = append(ledger, entry(id, typ, time.Now()))
		}
		return d
	}

	require.True(t, download("P1", entitlement.AssetPattern).Allow)
	require.True(t, download("M1", entitlement.AssetMotion).Allow)

	d := download("P2", entitlement.AssetPattern)
	require.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonFreeQuotaExhausted, d.Reason)

	assert.True(t, download("P1", entitlement.AssetPattern).Allow)
	assert.Len(t, ledger, 3)
}

func TestScenarioB_ProMonthlyLimit(t *testing.T) {
	sub := paid("Pro", periodStart)
	ledger := patterns(14, "OLD", periodStart.Add(time.Hour))

	d := entitlement.CanDownload(sub, ledger, "P15", entitlement.AssetPattern)
	require.True(t, d.Allow)
	ledger = append(ledger, entry("P15", entitlement.AssetPattern, periodStart.Add(72*time.Hour)))

	d = entitlement.CanDownload(sub, ledger, "P16", entitlement.AssetPattern)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonMonthlyLimitReached, d.Reason)

	d = entitlement.CanDownload(sub, ledger, "ANY-MOTION", entitlement.AssetMotion)
	assert.False(t, d.Allow)
	assert.Equal(t, entitlement.ReasonPlanExcludesAssetType, d.Reason)
}

func TestScenarioC_CancelledButActive(t *testing.T) {
	end := time.Now().Add(10 * 24 * time.Hour)
	sub := &entitlement.Subscription{
		Plan:        "All Access",
		Status:      "Active",
		StartDate:   time.Now().Add(-20 * 24 * time.Hour),
		EndDate:     &end,
		IsCancelled: true,
	}
	assert.True(t, entitlement.CanDownload(sub, nil, "P1", entitlement.AssetPattern).Allow)
	assert.True(t, entitlement.CanDownload(sub, nil, "M1", entitlement.AssetMotion).Allow)
}

func TestCanDownload_IsPure(t *testing.T) {
	sub := paid("Pro", periodStart)
	ledger := patterns(10, "P", periodStart)
	snapshot := append([]entitlement.LedgerEntry(nil), ledger...)

	first := entitlement.CanDownload(sub, ledger, "X", entitlement.AssetPattern)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, entitlement.CanDownload(sub, ledger, "X", entitlement.AssetPattern))
	}
	assert.Equal(t, snapshot, ledger)
}
