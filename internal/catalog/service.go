package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

type Service interface {
	ListProducts(ctx context.Context, f ListFilter) (*ProductPage, error)
	ListFeatured(ctx context.Context) ([]ProductSummary, error)
	GetProduct(ctx context.Context, slug string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProducts(ctx context.Context, f ListFilter) (*ProductPage, error) {
	f = f.Normalize()

	products, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	return &ProductPage{Products: products, Pagination: newPagination(f, total)}, nil
}

func (s *service) ListFeatured(ctx context.Context) ([]ProductSummary, error) {
	products, err := s.repo.ListFeatured(ctx, FeaturedLimit)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list featured products")
		return nil, fmt.Errorf("service: failed to list featured products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, slug string) (*Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Str("slug", slug).Msg("service: product not found")
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Str("slug", slug).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}
	return p, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}
