package coupons

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

func setupOfferDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  scope TEXT NOT NULL DEFAULT 'cart',
  scope_values TEXT NOT NULL DEFAULT '{}',
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  max_discount_paise INTEGER NOT NULL DEFAULT 0,
  min_cart_paise INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER NOT NULL DEFAULT 0,
  used_count INTEGER NOT NULL DEFAULT 0,
  per_user_limit INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  expires_at DATETIME,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS offer_redemptions (
  id TEXT PRIMARY KEY,
  offer_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT,
  discount_paise INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func seedOffer(t *testing.T, conn *gorm.DB, usageLimit, usedCount int) models.Offer {
	t.Helper()

	offer := models.Offer{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Description:   "Ten percent off",
		Scope:         enums.OfferScopeCart,
		DiscountType:  enums.OfferDiscountPercentage,
		DiscountValue: 10,
		UsageLimit:    usageLimit,
		UsedCount:     usedCount,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(&offer).Error)
	return offer
}

func TestFindActiveByCode_HonorsWindowAndActive(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	offer := seedOffer(t, conn, 0, 0)

	found, err := repo.FindActiveByCode(ctx, "SAVE10", now)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, offer.ID, found.ID)

	expired := now.Add(-time.Hour)
	require.NoError(t, conn.Model(&models.Offer{}).Where("id = ?", offer.ID).Update("expires_at", expired).Error)

	found, err = repo.FindActiveByCode(ctx, "SAVE10", now)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestIncrementUsage_StopsAtLimit(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	offer := seedOffer(t, conn, 2, 1)

	ok, err := repo.IncrementUsage(ctx, offer.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, offer.ID)
	require.NoError(t, err)
	require.False(t, ok)

	var usedCount int
	require.NoError(t, conn.Raw("SELECT used_count FROM offers WHERE id = ?", offer.ID).Scan(&usedCount).Error)
	require.Equal(t, 2, usedCount)
}

func TestIncrementUsage_UnlimitedWhenZeroLimit(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	offer := seedOffer(t, conn, 0, 99)

	ok, err := repo.IncrementUsage(ctx, offer.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCountUserRedemptions(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	offer := seedOffer(t, conn, 0, 0)
	userID := uuid.New()
	ok, err := repo.InsertRedemption(ctx, &models.OfferRedemption{
		ID:            uuid.New(),
		OfferID:       offer.ID,
		UserID:        userID,
		DiscountPaise: 1000,
	})
	require.NoError(t, err)
	require.True(t, ok)

	count, err := repo.CountUserRedemptions(ctx, offer.ID, userID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = repo.CountUserRedemptions(ctx, offer.ID, uuid.New())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestInsertRedemption_StopsAtPerUserLimit(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	offer := seedOffer(t, conn, 0, 0)
	require.NoError(t, conn.Model(&models.Offer{}).Where("id = ?", offer.ID).Update("per_user_limit", 1).Error)
	userID := uuid.New()

	ok, err := repo.InsertRedemption(ctx, &models.OfferRedemption{
		ID: uuid.New(), OfferID: offer.ID, UserID: userID, DiscountPaise: 1000,
	})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.InsertRedemption(ctx, &models.OfferRedemption{
		ID: uuid.New(), OfferID: offer.ID, UserID: userID, DiscountPaise: 1000,
	})
	require.NoError(t, err)
	require.False(t, ok)

	var ledger int64
	require.NoError(t, conn.Model(&models.OfferRedemption{}).
		Where("offer_id = ? AND user_id = ?", offer.ID, userID).Count(&ledger).Error)
	require.Equal(t, int64(1), ledger)

	// A different user is not blocked by someone else's ledger.
	ok, err = repo.InsertRedemption(ctx, &models.OfferRedemption{
		ID: uuid.New(), OfferID: offer.ID, UserID: uuid.New(), DiscountPaise: 1000,
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedeem_PerUserLimitHoldsAcrossCommits(t *testing.T) {
	conn := setupOfferDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	svc, err := NewService(repo)
	require.NoError(t, err)

	offer := seedOffer(t, conn, 0, 0)
	require.NoError(t, conn.Model(&models.Offer{}).Where("id = ?", offer.ID).Update("per_user_limit", 1).Error)

	eval := Evaluation{OfferID: offer.ID, Code: offer.Code, DiscountPaise: 1000}
	userID := uuid.New()

	require.NoError(t, svc.Redeem(ctx, nil, eval, userID, uuid.New()))

	err = svc.Redeem(ctx, nil, eval, userID, uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var ledger int64
	require.NoError(t, conn.Model(&models.OfferRedemption{}).
		Where("offer_id = ? AND user_id = ?", offer.ID, userID).Count(&ledger).Error)
	require.Equal(t, int64(1), ledger)
}
