package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Line, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Line, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list cart")
		return nil, fmt.Errorf("service: failed to list cart: %w", err)
	}
	return newCart(items), nil
}

// AddItem merges quantity into the user's cart. The stock check here is
// advisory; checkout re-validates under lock.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	avail, err := s.repo.GetAvailability(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Stringer("product_id", productID).Msg("service: add to cart for unknown product")
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("service: failed to check product availability")
		return nil, fmt.Errorf("service: failed to check product availability: %w", err)
	}
	if !avail.Published {
		log.Warn().Stringer("product_id", productID).Msg("service: add to cart for unpublished product")
		return nil, ErrProductNotFound
	}
	if avail.StockQuantity < quantity {
		log.Warn().
			Stringer("product_id", productID).
			Int("requested", quantity).
			Int("stock", avail.StockQuantity).
			Msg("service: insufficient stock for cart insert")
		return nil, ErrInsufficientStock
	}

	line, err := s.repo.Upsert(ctx, userID, productID, quantity)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return line, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to update cart item")
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}
	return line, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to remove cart item")
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return nil
}
