package model

import (
	"time"

	"storefront/internal/entitlement"
)

// DownloadLog is one entry of the append-only usage ledger.
type DownloadLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	AssetID   string    `db:"asset_id" json:"asset_id"`
	AssetType string    `db:"asset_type" json:"asset_type"`
	IP        *string   `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LedgerEntries converts stored rows for the entitlement evaluator. Rows with an
// unknown asset type are skipped.
func LedgerEntries(logs []DownloadLog) []entitlement.LedgerEntry {
	out := make([]entitlement.LedgerEntry, 0, len(logs))
	for _, l := range logs {
		t, ok := entitlement.ParseAssetType(l.AssetType)
		if !ok {
			continue
		}
		out = append(out, entitlement.LedgerEntry{AssetID: l.AssetID, AssetType: t, Timestamp: l.CreatedAt})
	}
	return out
}
