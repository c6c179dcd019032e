package catalog

import (
	"context"
	"errors"
)

// Service mediates access to the catalog repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	return s.repo.Create(ctx, product)
}

// Update replaces every mutable field of the product. There is no partial
// update; callers supply the complete desired state.
func (s *Service) Update(ctx context.Context, id int64, product Product) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]Product, error) {
	return s.repo.List(ctx, limit)
}

// RecordView records a first-seen view for (userID, productID). A repeated
// call returns the existing row; the created flag tells them apart.
func (s *Service) RecordView(ctx context.Context, userID, productID int64) (ProductView, bool, error) {
	if userID == 0 || productID == 0 {
		return ProductView{}, false, errors.New("catalog: user id and product id are required")
	}
	return s.repo.RecordView(ctx, userID, productID)
}
