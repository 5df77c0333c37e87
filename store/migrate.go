package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavanhd360/bakery-web/models"
)

// Parents come before the tables that reference them.
var tables = []any{
	&models.Product{},
	&models.Order{},
	&models.OrderItem{},
	&models.Feedback{},
}

// SeedProducts is the catalog a fresh database starts with.
func SeedProducts() []models.Product {
	return []models.Product{
		{Name: "Chocolate Cake", Price: decimal.RequireFromString("25.99"), Description: "Delicious chocolate cake with rich frosting", ImageURL: "images/product1.jpg"},
		{Name: "Croissant", Price: decimal.RequireFromString("3.99"), Description: "Buttery and flaky French pastry", ImageURL: "images/product2.jpg"},
		{Name: "Sourdough Bread", Price: decimal.RequireFromString("5.99"), Description: "Traditional sourdough bread", ImageURL: "images/product3.jpg"},
		{Name: "Cupcakes (6)", Price: decimal.RequireFromString("12.99"), Description: "Assorted cupcakes with different flavors", ImageURL: "images/product4.jpg"},
	}
}

// Migrate creates any missing table and seeds the catalog. Existing tables
// are left as they are, so running it again changes nothing.
func (s *Store) Migrate(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	for _, t := range tables {
		if m.HasTable(t) {
			continue
		}
		if err := m.CreateTable(t); err != nil {
			return fmt.Errorf("create table for %T: %w", t, err)
		}
	}
	if _, err := s.Seed(ctx); err != nil {
		return err
	}
	return nil
}

// Seed inserts SeedProducts when the products table is empty and reports how
// many rows it wrote.
func (s *Store) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Product{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		products := SeedProducts()
		if err := tx.Create(&products).Error; err != nil {
			return err
		}
		inserted = len(products)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	return inserted, nil
}
