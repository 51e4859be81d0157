package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetAll retrieves all products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT id, business_id, name, price, category, available, created_at
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return r.collectProducts(rows)
}

// GetByID retrieves a single product by its ID, including add-ons.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, business_id, name, price, category, available, created_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.BusinessID, &p.Name, &p.Price, &p.Category, &p.Available, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	addOns, err := r.addOnsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.AddOns = addOns[id]

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs, including add-ons.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, business_id, name, price, category, available, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	products, err := r.collectProducts(rows)
	if err != nil {
		return nil, err
	}

	addOns, err := r.addOnsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].AddOns = addOns[products[i].ID]
	}

	return products, nil
}

func (r *productRepository) collectProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Price, &p.Category, &p.Available, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// addOnsFor loads the add-ons of the given products, keyed by product ID.
func (r *productRepository) addOnsFor(ctx context.Context, productIDs []string) (map[string][]model.AddOn, error) {
	query := `
		SELECT id, product_id, name, price
		FROM product_add_ons
		WHERE product_id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product add-ons")
		return nil, fmt.Errorf("failed to query product add-ons: %w", err)
	}
	defer rows.Close()

	addOns := make(map[string][]model.AddOn)
	for rows.Next() {
		var a model.AddOn
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Name, &a.Price); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan add-on row")
			return nil, fmt.Errorf("failed to scan add-on: %w", err)
		}
		addOns[a.ProductID] = append(addOns[a.ProductID], a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating add-ons: %w", err)
	}

	return addOns, nil
}
