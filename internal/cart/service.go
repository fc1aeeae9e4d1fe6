package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

const maxCartLines = 50

// Service owns the buyer cart lifecycle up to checkout. Each line keeps the
// charged price seen when it was added; that snapshot is display-only and
// the checkout engine reprices from the live catalog on every quote.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, ref catalog.ItemRef) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error

	// LoadForCheckout returns the active cart's lines as item refs, failing
	// when the cart is missing or empty.
	LoadForCheckout(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, []catalog.ItemRef, error)
	Close(ctx context.Context, repo Repository, cartID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Service
}

func NewService(repo Repository, catalogSvc catalog.Service) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: repository is required")
	}
	if catalogSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: catalog service is required")
	}
	return &service{repo: repo, catalog: catalogSvc}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, ref catalog.ItemRef) (*models.Cart, error) {
	if ref.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	// Validate against the live catalog so dead or oversold lines never
	// reach the cart in the first place.
	lines, err := s.catalog.Resolve(ctx, []catalog.ItemRef{ref})
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{ID: uuid.New(), UserID: userID}
		if err := s.repo.Create(ctx, cart); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, ref.ProductID, ref.VariantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		merged := existing.Quantity + ref.Quantity
		if _, err := s.catalog.Resolve(ctx, []catalog.ItemRef{{ProductID: ref.ProductID, VariantID: ref.VariantID, Quantity: merged}}); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, merged); err != nil {
			return nil, err
		}
		return s.Get(ctx, userID)
	}

	if len(cart.Items) >= maxCartLines {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line limit reached").
			WithDetails(map[string]any{"max_lines": maxCartLines})
	}

	item := &models.CartItem{
		ID:             uuid.New(),
		CartID:         cart.ID,
		ProductID:      ref.ProductID,
		VariantID:      ref.VariantID,
		Quantity:       ref.Quantity,
		UnitPricePaise: lines[0].FinalPricePaise,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.mustActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItemByID(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.Resolve(ctx, []catalog.ItemRef{{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: quantity}}); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.mustActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItemByID(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.repo.DeleteItems(ctx, cart.ID)
}

func (s *service) LoadForCheckout(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, []catalog.ItemRef, error) {
	if repo == nil {
		repo = s.repo
	}

	cart, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	refs := make([]catalog.ItemRef, 0, len(cart.Items))
	for _, item := range cart.Items {
		refs = append(refs, catalog.ItemRef{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return cart, refs, nil
}

func (s *service) Close(ctx context.Context, repo Repository, cartID uuid.UUID) error {
	if repo == nil {
		repo = s.repo
	}
	if err := repo.MarkCheckedOut(ctx, cartID, time.Now().UTC()); err != nil {
		return err
	}
	return repo.DeleteItems(ctx, cartID)
}

func (s *service) mustActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}
	return cart, nil
}
