package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

// Insert writes the order and its lines in one transaction.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	row := orderRow{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Lines:       make([]orderLineRow, 0, len(o.Lines)),
	}
	for i, l := range o.Lines {
		row.Lines = append(row.Lines, orderLineRow{
			OrderID:   o.ID,
			Position:  i,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlstore: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get order: %w", err)
	}
	return row.toDomain(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list orders: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&orderRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": db.NowFunc()})
	if res.Error != nil {
		return fmt.Errorf("sqlstore: update order status: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := db.Model(&orderRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("sqlstore: update order status: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.Status, since time.Time) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("status = ?", string(status))
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var rows []orderRow
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list orders by status: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// CountByStatus aggregates in the database.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := r.db.WithContext(ctx).Model(&orderRow{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlstore: count orders: %w", err)
	}
	counts := make(map[domain.Status]int, len(rows))
	for _, row := range rows {
		counts[domain.Status(row.Status)] = row.N
	}
	return counts, nil
}

func (r orderRow) toDomain() *domain.Order {
	o := &domain.Order{
		ID:          r.ID,
		UserID:      r.UserID,
		TotalAmount: r.TotalAmount,
		Status:      domain.Status(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Lines:       make([]domain.Line, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		o.Lines = append(o.Lines, domain.Line{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return o
}
