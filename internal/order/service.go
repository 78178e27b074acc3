package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/metrics"
)

type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, addr ShippingAddress, ip string) (*Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
}

type service struct {
	repo    Repository
	policy  Policy
	audit   audit.Recorder
	metrics *metrics.Metrics
}

func NewService(repo Repository, policy Policy, recorder audit.Recorder, m *metrics.Metrics) Service {
	return &service{
		repo:    repo,
		policy:  policy,
		audit:   recorder,
		metrics: m,
	}
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, addr ShippingAddress, ip string) (*Order, error) {
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	if addr.Country == "" {
		addr.Country = s.policy.DefaultCountry
	}

	o, err := s.repo.Checkout(ctx, userID, addr, s.policy)
	if err != nil {
		var stockErr *StockError
		switch {
		case errors.Is(err, ErrEmptyCart):
			s.metrics.CheckoutFailed(metrics.ReasonEmptyCart)
			log.Warn().Stringer("user_id", userID).Msg("service: checkout on empty cart")
			return nil, err
		case errors.As(err, &stockErr):
			s.metrics.CheckoutFailed(metrics.ReasonInsufficientStock)
			log.Warn().Stringer("user_id", userID).Stringer("product_id", stockErr.ProductID).Msg("service: checkout rejected, insufficient stock")
			return nil, err
		default:
			s.metrics.CheckoutFailed(metrics.ReasonInternal)
			log.Error().Err(err).Stringer("user_id", userID).Msg("service: checkout failed")
			return nil, fmt.Errorf("service: checkout failed: %w", err)
		}
	}

	s.metrics.OrderCreated()
	s.audit.Record(ctx, audit.Entry{
		UserID:     userID,
		Action:     audit.ActionOrderCreated,
		EntityType: "order",
		EntityID:   o.ID.String(),
		Details: map[string]any{
			"total":    o.TotalAmount.StringFixed(2),
			"shipping": o.ShippingCost.StringFixed(2),
			"items":    o.ItemsCount,
		},
		IPAddress: ip,
	})

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", userID).
		Str("total", o.TotalAmount.StringFixed(2)).
		Msg("Service: Order created successfully")

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByIDForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Stringer("user_id", userID).Msg("service: order not found for user")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}
