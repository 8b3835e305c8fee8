package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price, original_price, rating, review_count,
       category, brand, image, description, stock`

// PgSource implements Source backed by a PostgreSQL products table. Enabled
// when a database URL is configured; the schema lives under migrations/.
type PgSource struct {
	db *pgxpool.Pool
}

func NewPgSource(db *pgxpool.Pool) *PgSource {
	return &PgSource{db: db}
}

// Products returns all products ordered by identifier.
func (s *PgSource) Products(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by its identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *PgSource) FindByID(ctx context.Context, id int64) (*Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query product %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read product %d: %w", id, err)
		}
		return nil, ErrProductNotFound
	}
	p, err := scanProduct(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p             Product
		price         decimal.Decimal
		originalPrice *decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &price, &originalPrice, &p.Rating, &p.ReviewCount,
		&p.Category, &p.Brand, &p.Image, &p.Description, &p.Stock)
	if err != nil {
		return Product{}, fmt.Errorf("failed to scan product row: %w", err)
	}
	p.Price = price
	p.OriginalPrice = originalPrice
	return p, nil
}
