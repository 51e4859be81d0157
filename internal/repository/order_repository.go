package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bazaar-backend/internal/model"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. Order creation uses it to retry order number allocation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id, driver_id, order_type, payment_method,
			payment_status, status, address_line, address_city, address_lat,
			address_lon, total_amount, discount_amount, platform_fee,
			delivery_fee, final_amount, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	var line, city *string
	var lat, lon *float64
	if a := order.DeliveryAddress; a != nil {
		line, city, lat, lon = &a.Line, &a.City, &a.Latitude, &a.Longitude
	}

	_, err := tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.UserID, order.DriverID, order.Type,
		order.PaymentMethod, order.PaymentStatus, order.Status, line, city, lat, lon,
		order.TotalAmount, order.DiscountAmount, order.PlatformFee,
		order.DeliveryFee, order.FinalAmount, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if !IsUniqueViolation(err) {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to create order")
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, business_id, name, quantity, unit_price, total_price, add_ons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		addOnsJSON, err := json.Marshal(item.AddOns)
		if err != nil {
			return fmt.Errorf("failed to marshal add-ons: %w", err)
		}
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.BusinessID,
			item.Name, item.Quantity, item.UnitPrice, item.TotalPrice, addOnsJSON)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// SetQRToken attaches a pickup token to the order within the transaction.
func (r *orderRepository) SetQRToken(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, token string) error {
	query := `UPDATE orders SET qr_token = $2, updated_at = now() WHERE id = $1`
	_, err := tx.Exec(ctx, query, orderID, token)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to set qr token")
		return fmt.Errorf("failed to set qr token: %w", err)
	}
	return nil
}

const orderColumns = `
	id, order_number, user_id, driver_id, order_type, payment_method,
	payment_status, status, address_line, address_city, address_lat,
	address_lon, total_amount, discount_amount, platform_fee, delivery_fee,
	final_amount, qr_token, delivered_at, created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var line, city *string
	var lat, lon *float64
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.DriverID, &o.Type, &o.PaymentMethod,
		&o.PaymentStatus, &o.Status, &line, &city, &lat, &lon,
		&o.TotalAmount, &o.DiscountAmount, &o.PlatformFee, &o.DeliveryFee,
		&o.FinalAmount, &o.QRToken, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if line != nil && lat != nil && lon != nil {
		o.DeliveryAddress = &model.Address{Line: *line, Latitude: *lat, Longitude: *lon}
		if city != nil {
			o.DeliveryAddress.City = *city
		}
	}
	return &o, nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

// GetItems retrieves the items of an order.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, business_id, name, quantity, unit_price, total_price, add_ons
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		var addOnsJSON []byte
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.BusinessID,
			&item.Name, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &addOnsJSON)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if len(addOnsJSON) > 0 {
			if err := json.Unmarshal(addOnsJSON, &item.AddOns); err != nil {
				return nil, fmt.Errorf("failed to unmarshal add-ons: %w", err)
			}
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// CountForDate counts orders created on the given UTC date.
func (r *orderRepository) CountForDate(ctx context.Context, day time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var count int
	if err := r.pool.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders for date")
		return 0, fmt.Errorf("failed to count orders for date: %w", err)
	}
	return count, nil
}

// casUpdate runs a compare-and-swap style update and reports whether a row
// actually changed.
func (r *orderRepository) casUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionStatus moves an order from one status to another.
func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`
	return r.casUpdate(ctx, query, id, from, to)
}

// AssignDriver moves an order between statuses and sets the driver.
func (r *orderRepository) AssignDriver(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, driverID uuid.UUID) (bool, error) {
	query := `
		UPDATE orders SET status = $3, driver_id = $4, updated_at = now()
		WHERE id = $1 AND status = $2 AND driver_id IS NULL
	`
	return r.casUpdate(ctx, query, id, from, to, driverID)
}

// ClearDriver moves an order between statuses and clears the driver.
func (r *orderRepository) ClearDriver(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders SET status = $3, driver_id = NULL, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	return r.casUpdate(ctx, query, id, from, to)
}

// MarkDelivered completes a delivery, recording the delivery time.
func (r *orderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, from model.OrderStatus, deliveredAt time.Time) (bool, error) {
	query := `
		UPDATE orders SET status = $3, delivered_at = $4, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	return r.casUpdate(ctx, query, id, from, model.StatusCompleted, deliveredAt)
}

// CompletePickup completes a pickup order from the preparing status.
func (r *orderRepository) CompletePickup(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3 AND order_type = $4
	`
	return r.casUpdate(ctx, query, id, model.StatusCompleted, model.StatusPreparing, model.OrderTypePickup)
}

// TransitionPaymentStatus moves an order's payment status from one state
// to another. The predicate makes concurrent settlement attempts race for
// a single winner.
func (r *orderRepository) TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to model.PaymentStatus) (bool, error) {
	query := `UPDATE orders SET payment_status = $3, updated_at = now() WHERE id = $1 AND payment_status = $2`
	return r.casUpdate(ctx, query, id, from, to)
}

// SetPaymentStatus updates the payment status of an order.
func (r *orderRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to set payment status")
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	return nil
}

// ListByStatus returns orders currently in the given status, oldest first.
func (r *orderRepository) ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at LIMIT $2`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("status", string(status)).Msg("failed to query orders by status")
		return nil, fmt.Errorf("failed to query orders by status: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
