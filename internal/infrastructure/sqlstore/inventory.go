package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"

	"gorm.io/gorm"
)

// InventoryRepository keeps stock in the products table. Adjustments are a
// single conditional UPDATE, so the database decides races.
type InventoryRepository struct {
	db *gorm.DB
}

func (r *InventoryRepository) Insert(ctx context.Context, p *domain.Product) error {
	row := productRow{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	err := r.db.WithContext(ctx).Create(&row).Error
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlstore: insert product: %w", err)
	}
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get product: %w", err)
	}
	return row.toDomain(), nil
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Product, error) {
	var rows []productRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list products: %w", err)
	}
	out := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *InventoryRepository) Update(ctx context.Context, p *domain.Product) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":       p.Name,
		"price":      p.Price,
		"updated_at": p.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("sqlstore: update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&productRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) Adjust(ctx context.Context, productID string, delta int) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var aerr error
		stock, aerr = adjust(tx, productID, delta)
		return aerr
	})
	return stock, err
}

// AdjustAll applies every adjustment in one transaction. Rows are touched in
// product id order so two batches can never deadlock on each other.
func (r *InventoryRepository) AdjustAll(ctx context.Context, adjs []domain.Adjustment) error {
	ordered := append([]domain.Adjustment(nil), adjs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range ordered {
			if _, err := adjust(tx, a.ProductID, a.Delta); err != nil {
				return err
			}
		}
		return nil
	})
}

func adjust(tx *gorm.DB, productID string, delta int) (int, error) {
	res := tx.Model(&productRow{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": tx.NowFunc(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("sqlstore: adjust stock: %w", res.Error)
	}

	var row productRow
	err := tx.Select("id", "stock").First(&row, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: read stock: %w", err)
	}
	if res.RowsAffected == 0 {
		return row.Stock, &domain.StockError{ProductID: productID, Requested: -delta, Available: row.Stock}
	}
	return row.Stock, nil
}

func (r productRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Stock:     r.Stock,
		UpdatedAt: r.UpdatedAt,
	}
}
