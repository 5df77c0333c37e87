// Package store persists the catalog, orders and feedback through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavanhd360/bakery-web/config"
	"github.com/pavanhd360/bakery-web/models"
	"github.com/pavanhd360/bakery-web/obs"
)

// ErrUnknownProduct is returned when a checkout names a product that is not in the catalog.
var ErrUnknownProduct = errors.New("unknown product")

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func utcNow() time.Time { return time.Now().UTC() }

// Open connects to the configured database. The returned Store owns the
// connection pool; call Close when done.
func Open(cfg config.Database, log *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obs.NewGormLogger(log, cfg.SlowThreshold),
		NowFunc:        utcNow,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return New(db), nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: utcNow}
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN query sets them.
func sqliteDSN(dsn string) string {
	query := ""
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		query = dsn[i+1:]
	}
	opts, _ := url.ParseQuery(query)
	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := opts[k]; ok {
				return true
			}
		}
		return false
	}

	var params []string
	if !has("_foreign_keys", "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !has("_busy_timeout", "_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListProducts returns the whole catalog in id order.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// PlaceOrder writes the order header and one row per line item in a single
// transaction. Either every row is committed or none is.
func (s *Store) PlaceOrder(ctx context.Context, req models.CheckoutRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order := models.Order{
		CustomerName: strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Address:      strings.TrimSpace(req.Address),
		TotalAmount:  req.Total.Round(2),
		OrderDate:    s.now(),
		Status:       models.OrderStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := req.ProductIDs()
		var known []uint
		if err := tx.Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &known).Error; err != nil {
			return fmt.Errorf("look up products: %w", err)
		}
		if len(known) != len(ids) {
			var missing []uint
			for _, id := range ids {
				if !slices.Contains(known, id) {
					missing = append(missing, id)
				}
			}
			return fmt.Errorf("%w: %v", ErrUnknownProduct, missing)
		}

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := make([]models.OrderItem, len(req.Items))
		for i, it := range req.Items {
			items[i] = models.OrderItem{
				OrderID:   order.ID,
				ProductID: uint(it.ID),
				Quantity:  it.Quantity,
				Price:     it.Price.Round(2),
			}
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("insert items for order %d: %w", order.ID, err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrder loads an order with its line items. It is the read path for
// checking what a checkout committed; no HTTP route exposes it.
func (s *Store) FindOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&order, id).Error
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &order, nil
}

// SaveFeedback stores one feedback message stamped with the server time.
func (s *Store) SaveFeedback(ctx context.Context, req models.FeedbackRequest) (*models.Feedback, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fb := models.Feedback{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Message:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return &fb, nil
}
