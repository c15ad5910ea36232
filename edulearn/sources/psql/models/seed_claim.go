package models

import "time"

// SeedClaim marks an owner whose example sessions were already handed out.
type SeedClaim struct {
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(64);primaryKey"`
	ClaimedAt time.Time `json:"claimed_at" gorm:"not null"`
}

func (SeedClaim) TableName() string {
	return "chat_seed_claims"
}
