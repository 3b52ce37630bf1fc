package account

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ForAccount returns a GORM scope that filters by account_id.
func ForAccount(accountID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("account_id = ?", accountID)
	}
}
