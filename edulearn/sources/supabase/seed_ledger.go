package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// uniqueViolation is the Postgres code PostgREST forwards for a duplicate key.
const uniqueViolation = "(23505)"

// SeedLedger records seeded owners in a table keyed by owner_id.
type SeedLedger struct {
	client Querier
	table  string
}

type seedClaimRow struct {
	OwnerID   string    `json:"owner_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func NewSeedLedger(client Querier, table string) *SeedLedger {
	if table == "" {
		table = "chat_seed_claims"
	}
	return &SeedLedger{client: client, table: table}
}

func (l *SeedLedger) Claim(_ context.Context, ownerID string) (bool, error) {
	row := seedClaimRow{OwnerID: ownerID, ClaimedAt: time.Now().UTC()}
	_, _, err := l.client.From(l.table).Insert([]seedClaimRow{row}, false, "", "minimal", "").Execute()
	if err != nil {
		if strings.HasPrefix(err.Error(), uniqueViolation) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim seed: %w", err)
	}
	return true, nil
}

func (l *SeedLedger) Release(_ context.Context, ownerID string) error {
	_, _, err := l.client.From(l.table).Delete("minimal", "").Eq("owner_id", ownerID).Execute()
	return err
}
