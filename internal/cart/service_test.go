package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

type memRepo struct {
	carts map[uuid.UUID]*models.Cart
}

func newMemRepo() *memRepo {
	return &memRepo{carts: map[uuid.UUID]*models.Cart{}}
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, cart := range m.carts {
		if cart.UserID == userID && cart.CheckedOutAt == nil {
			copied := *cart
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Create(ctx context.Context, cart *models.Cart) error {
	stored := *cart
	m.carts[cart.ID] = &stored
	return nil
}

func (m *memRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, nil
	}
	for i := range cart.Items {
		item := cart.Items[i]
		if item.ProductID != productID {
			continue
		}
		if (item.VariantID == nil) != (variantID == nil) {
			continue
		}
		if variantID != nil && *item.VariantID != *variantID {
			continue
		}
		copied := item
		return &copied, nil
	}
	return nil, nil
}

func (m *memRepo) FindItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			copied := cart.Items[i]
			return &copied, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (m *memRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	cart := m.carts[item.CartID]
	cart.Items = append(cart.Items, *item)
	return nil
}

func (m *memRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return nil
}

func (m *memRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	if cart, ok := m.carts[cartID]; ok {
		cart.Items = nil
	}
	return nil
}

func (m *memRepo) MarkCheckedOut(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	if cart, ok := m.carts[cartID]; ok {
		stamped := at
		cart.CheckedOutAt = &stamped
	}
	return nil
}

type stubCatalog struct {
	stock  map[uuid.UUID]int
	prices map[uuid.UUID]int64
}

func (s *stubCatalog) Resolve(ctx context.Context, refs []catalog.ItemRef) ([]catalog.Priceable, error) {
	out := make([]catalog.Priceable, 0, len(refs))
	for _, ref := range refs {
		available, ok := s.stock[ref.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if available < ref.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
				WithDetails(map[string]any{"available": available})
		}
		price := s.prices[ref.ProductID]
		out = append(out, catalog.Priceable{
			ProductID:       ref.ProductID,
			Quantity:        ref.Quantity,
			BasePricePaise:  price,
			FinalPricePaise: price,
		})
	}
	return out, nil
}

func newCartService(t *testing.T, repo Repository, stock map[uuid.UUID]int) Service {
	t.Helper()
	svc, err := NewService(repo, &stubCatalog{stock: stock})
	require.NoError(t, err)
	return svc
}

func TestAddItem_CreatesCartAndMergesDuplicates(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	productID := uuid.New()
	svc := newCartService(t, repo, map[uuid.UUID]int{productID: 10})
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_SnapshotsChargedPriceAtAddTime(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	productID := uuid.New()
	stub := &stubCatalog{
		stock:  map[uuid.UUID]int{productID: 10},
		prices: map[uuid.UUID]int64{productID: 12500},
	}
	svc, err := NewService(repo, stub)
	require.NoError(t, err)
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(12500), cart.Items[0].UnitPricePaise)

	// A later catalog price change does not rewrite the stored snapshot.
	stub.prices[productID] = 9900
	cart, err = svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(12500), cart.Items[0].UnitPricePaise)
}

func TestAddItem_RejectsWhenMergedQuantityExceedsStock(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	productID := uuid.New()
	svc := newCartService(t, repo, map[uuid.UUID]int{productID: 4})
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 3})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 2})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, coded.Code())
}

func TestAddItem_RejectsZeroQuantity(t *testing.T) {
	t.Parallel()

	svc := newCartService(t, newMemRepo(), nil)
	_, err := svc.AddItem(context.Background(), uuid.New(), catalog.ItemRef{ProductID: uuid.New()})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestLoadForCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	svc := newCartService(t, newMemRepo(), nil)
	_, _, err := svc.LoadForCheckout(context.Background(), nil, uuid.New())
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestUpdateAndRemoveItem(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	productID := uuid.New()
	svc := newCartService(t, repo, map[uuid.UUID]int{productID: 10})
	userID := uuid.New()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, userID, catalog.ItemRef{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItem(ctx, userID, itemID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	cart, err = svc.RemoveItem(ctx, userID, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
