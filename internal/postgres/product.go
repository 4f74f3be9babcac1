package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository implements domain.ProductCatalog using PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// Compile-time check that ProductRepository implements domain.ProductCatalog.
var _ domain.ProductCatalog = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product catalog.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id::text, name, slug, category, coalesce(image_url, ''), price, compare_at_price, is_active`

// GetProduct returns a product by id, active or not.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const op = "product.get"

	// Ids are uuids; anything else cannot match a row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrProductNotFound.WithOp(op)
	}

	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to get product")
	}
	return p, nil
}

// ListActiveProducts returns active products ordered for the storefront.
func (r *ProductRepository) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active ORDER BY sort_order, name`)
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Internal(err, "product.list", "failed to scan product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}

	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Category,
		&p.ImageURL,
		&p.Price,
		&p.CompareAtPrice,
		&p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
