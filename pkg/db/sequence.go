package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
)

const orderSequencePrefix = "order"

// AllocateOrderNumber reserves the next order number for the given day inside
// the caller's transaction. Numbers look like ORD-20250131-000042 and reset
// each calendar day. The upsert takes a row lock, so concurrent commits on the
// same day serialize on the counter row and never share a number.
func AllocateOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	key := fmt.Sprintf("%s:%s", orderSequencePrefix, day)

	counter := models.Counter{Name: key, Value: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("counters.value + 1")}),
	}).Create(&counter).Error
	if err != nil {
		return "", fmt.Errorf("advancing order sequence: %w", err)
	}

	var value int64
	if err := tx.Model(&models.Counter{}).Where("name = ?", key).Select("value").Scan(&value).Error; err != nil {
		return "", fmt.Errorf("reading order sequence: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%06d", day, value), nil
}
