package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"
)

type productRow struct {
	ID        string          `gorm:"primaryKey;size:64"`
	Name      string          `gorm:"size:255;not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Stock     int             `gorm:"not null;check:stock >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productRow) TableName() string { return "products" }

type orderRow struct {
	ID          string          `gorm:"primaryKey;size:64"`
	UserID      string          `gorm:"size:64;not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status      string          `gorm:"size:16;not null"`
	Lines       []orderLineRow  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"index"`
	UpdatedAt   time.Time
}

func (orderRow) TableName() string { return "orders" }

type orderLineRow struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:64;not null;index"`
	Position  int             `gorm:"not null"`
	ProductID string          `gorm:"size:64;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (orderLineRow) TableName() string { return "order_lines" }

type paymentRow struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	OrderID            string          `gorm:"size:64;not null;uniqueIndex"`
	Amount             decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency           string          `gorm:"size:8;not null"`
	Status             string          `gorm:"size:16;not null"`
	ExternalOrderRef   string          `gorm:"size:128;not null;uniqueIndex"`
	ExternalPaymentRef string          `gorm:"size:128"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (paymentRow) TableName() string { return "payments" }

type userRow struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Email     string `gorm:"size:320;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }
