// edulearn/sources/psql/dao/dao.seed_claim.go
package dao

import (
	"context"
	"time"

	"edulearn/edulearn/sources/psql/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedClaimDAO is the Postgres seed ledger: one row per claimed owner.
type SeedClaimDAO struct {
	DB *gorm.DB
}

func NewSeedClaimDAO(db *gorm.DB) *SeedClaimDAO {
	return &SeedClaimDAO{DB: db}
}

func (dao *SeedClaimDAO) Claim(ctx context.Context, ownerID string) (bool, error) {
	row := models.SeedClaim{OwnerID: ownerID, ClaimedAt: time.Now().UTC()}
	res := dao.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (dao *SeedClaimDAO) Release(ctx context.Context, ownerID string) error {
	return dao.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.SeedClaim{}).Error
}
