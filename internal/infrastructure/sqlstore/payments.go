package sqlstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	row := paymentFromDomain(p)
	err := r.db.WithContext(ctx).Create(&row).Error
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlstore: insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.findBy(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) FindByExternalOrderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.findBy(ctx, "external_order_ref = ?", ref)
}

func (r *PaymentRepository) findBy(ctx context.Context, cond string, arg string) (*domain.Payment, error) {
	var row paymentRow
	err := r.db.WithContext(ctx).First(&row, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get payment: %w", err)
	}
	return row.toDomain(), nil
}

func (r *PaymentRepository) UpdateIf(ctx context.Context, p *domain.Payment, from domain.Status) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&paymentRow{}).
		Where("id = ? AND status = ?", p.ID, string(from)).
		Updates(map[string]any{
			"status":               string(p.Status),
			"external_order_ref":   p.ExternalOrderRef,
			"external_payment_ref": p.ExternalPaymentRef,
			"updated_at":           db.NowFunc(),
		})
	if isDuplicate(res.Error) {
		return domain.ErrConflict
	}
	if res.Error != nil {
		return fmt.Errorf("sqlstore: update payment: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := db.Model(&paymentRow{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("sqlstore: update payment: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func paymentFromDomain(p *domain.Payment) paymentRow {
	return paymentRow{
		ID:                 p.ID,
		OrderID:            p.OrderID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		Status:             string(p.Status),
		ExternalOrderRef:   p.ExternalOrderRef,
		ExternalPaymentRef: p.ExternalPaymentRef,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (r paymentRow) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:                 r.ID,
		OrderID:            r.OrderID,
		Amount:             r.Amount,
		Currency:           r.Currency,
		Status:             domain.Status(r.Status),
		ExternalOrderRef:   r.ExternalOrderRef,
		ExternalPaymentRef: r.ExternalPaymentRef,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
