package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order *domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snap := order.Snapshot()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, currency, state,
			tracking_number, carrier, delivered_at, cancel_reason,
			tax_rate_bps, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		snap.ID, snap.CustomerID, snap.Currency, string(snap.State),
		snap.Shipment.TrackingNumber, snap.Shipment.Carrier,
		nullableTime(snap.DeliveredAt), snap.CancelReason,
		snap.TaxRateBps, snap.Version, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertOrderChildren(ctx, tx, snap); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snap, err := r.scanOrderRow(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, currency, state,
		       tracking_number, carrier, delivered_at, cancel_reason,
		       tax_rate_bps, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, snap)
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_id, currency, state,
		       tracking_number, carrier, delivered_at, cancel_reason,
		       tax_rate_bps, version, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	snaps := make([]domain.OrderSnapshot, 0)
	for rows.Next() {
		snap, err := r.scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	orders := make([]*domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		order, err := r.hydrate(ctx, snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *orderRepository) Save(order *domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snap := order.Snapshot()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET state = $1,
		    tracking_number = $2,
		    carrier = $3,
		    delivered_at = $4,
		    cancel_reason = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7
		  AND version = $8
	`,
		string(snap.State),
		snap.Shipment.TrackingNumber, snap.Shipment.Carrier,
		nullableTime(snap.DeliveredAt), snap.CancelReason,
		snap.UpdatedAt,
		snap.ID, snap.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, checkErr := rowExistsTx(ctx, tx, `SELECT id FROM orders WHERE id = $1`, snap.ID)
		if checkErr != nil {
			err = checkErr
			return err
		}
		if !exists {
			err = domain.ErrOrderNotFound
			return err
		}
		err = domain.ErrOrderVersionConflict
		return err
	}

	// Состав, скидки и журнал перезаписываются целиком.
	for _, table := range []string{"order_items", "order_discounts", "order_audit"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE order_id = $1`, snap.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err = insertOrderChildren(ctx, tx, snap); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order: %w", err)
	}
	return nil
}

// orderRowScanner объединяет *sql.Row и *sql.Rows.
type orderRowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrderRow(row orderRowScanner) (domain.OrderSnapshot, error) {
	var (
		snap        domain.OrderSnapshot
		state       string
		deliveredAt sql.NullTime
	)
	err := row.Scan(
		&snap.ID, &snap.CustomerID, &snap.Currency, &state,
		&snap.Shipment.TrackingNumber, &snap.Shipment.Carrier, &deliveredAt, &snap.CancelReason,
		&snap.TaxRateBps, &snap.Version, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderSnapshot{}, domain.ErrOrderNotFound
		}
		return domain.OrderSnapshot{}, fmt.Errorf("select order: %w", err)
	}
	snap.State = domain.OrderState(state)
	if deliveredAt.Valid {
		snap.DeliveredAt = deliveredAt.Time.UTC()
	}
	return snap, nil
}

func (r *orderRepository) hydrate(ctx context.Context, snap domain.OrderSnapshot) (*domain.Order, error) {
	items, err := r.loadItems(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	snap.Items = items

	discounts, err := r.loadDiscounts(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	snap.Discounts = discounts

	trail, err := r.loadTrail(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	snap.Trail = trail

	return domain.ReconstructOrder(snap)
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, qty, unit_price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	currency, err := r.orderCurrency(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			productID, name string
			qty             int
			priceMinor      int64
		)
		if err := rows.Scan(&productID, &name, &qty, &priceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		price, err := domain.NewMoney(priceMinor, currency)
		if err != nil {
			return nil, fmt.Errorf("restore item price: %w", err)
		}
		item, err := domain.NewOrderItem(productID, name, qty, price)
		if err != nil {
			return nil, fmt.Errorf("restore order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) loadDiscounts(ctx context.Context, orderID string) ([]domain.Discount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT discount_type, amount_minor, currency, description, policy_id, percentage, resolved
		FROM order_discounts
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order discounts: %w", err)
	}
	defer rows.Close()

	discounts := make([]domain.Discount, 0)
	for rows.Next() {
		var rec domain.DiscountRecord
		var kind string
		if err := rows.Scan(&kind, &rec.AmountMinor, &rec.Currency, &rec.Description, &rec.PolicyID, &rec.Percentage, &rec.Resolved); err != nil {
			return nil, fmt.Errorf("scan order discount: %w", err)
		}
		rec.Type = domain.DiscountType(kind)
		discount, err := domain.ReconstructDiscount(rec)
		if err != nil {
			return nil, fmt.Errorf("restore discount: %w", err)
		}
		discounts = append(discounts, discount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order discounts: %w", err)
	}
	return discounts, nil
}

func (r *orderRepository) loadTrail(ctx context.Context, orderID string) (domain.AuditTrail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT occurred_at, actor, action
		FROM order_audit
		WHERE order_id = $1
		ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return domain.AuditTrail{}, fmt.Errorf("load order audit: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(&entry.Timestamp, &entry.Actor, &entry.Action); err != nil {
			return domain.AuditTrail{}, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return domain.AuditTrail{}, fmt.Errorf("iterate audit entries: %w", err)
	}
	return domain.ReconstructAuditTrail(entries)
}

func (r *orderRepository) orderCurrency(ctx context.Context, orderID string) (string, error) {
	var currency string
	if err := r.db.QueryRowContext(ctx, `SELECT currency FROM orders WHERE id = $1`, orderID).Scan(&currency); err != nil {
		return "", fmt.Errorf("select order currency: %w", err)
	}
	return currency, nil
}

func insertOrderChildren(ctx context.Context, tx *sql.Tx, snap domain.OrderSnapshot) error {
	for i, item := range snap.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, product_id, name, qty, unit_price_minor
			) VALUES ($1,$2,$3,$4,$5,$6)
		`, snap.ID, i, item.ProductID(), item.Name(), item.Quantity(), item.UnitPrice().Minor()); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for i, d := range snap.Discounts {
		rec := d.Record()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_discounts (
				order_id, position, discount_type, amount_minor, currency,
				description, policy_id, percentage, resolved
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, snap.ID, i, string(rec.Type), rec.AmountMinor, rec.Currency,
			rec.Description, rec.PolicyID, rec.Percentage, rec.Resolved); err != nil {
			return fmt.Errorf("insert order discount: %w", err)
		}
	}

	for i, entry := range snap.Trail.Entries() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_audit (
				order_id, seq, occurred_at, actor, action
			) VALUES ($1,$2,$3,$4,$5)
		`, snap.ID, i, entry.Timestamp, entry.Actor, entry.Action); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
	}

	return nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
