package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wellnest/internal/models"
	"wellnest/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductService exposes read-only catalog lookups and bootstraps the catalog.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// List returns every product in the catalog.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.repo.List(ctx)
}

// Get returns a product by ID.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

// SeedIfEmpty stores products when the catalog has no entries and returns how many were added.
func (s *ProductService) SeedIfEmpty(ctx context.Context, products []models.Product) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	for i := range products {
		if err := s.repo.Create(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
	}
	return len(products), nil
}

// SampleCatalog is the demo catalog used for empty databases.
func SampleCatalog() []models.Product {
	return []models.Product{
		{
			Name: "Amoxicillin 500mg", Description: "Antibiotic for bacterial infections",
			Price: decimal.RequireFromString("12.99"), Stock: 100, Category: "rx-medicines",
			RequiresPrescription: true,
		},
		{
			Name: "Vitamin D3 1000 IU", Description: "Daily vitamin supplement for bone health",
			Price: decimal.RequireFromString("8.99"), Stock: 200, Category: "wellness",
		},
		{
			Name: "Digital Thermometer", Description: "Fast and accurate temperature readings",
			Price: decimal.RequireFromString("15.99"), Stock: 50, Category: "devices",
		},
		{
			Name: "Baby Gentle Soap", Description: "Hypoallergenic soap for sensitive skin",
			Price: decimal.RequireFromString("6.99"), Stock: 150, Category: "baby-care",
		},
	}
}
