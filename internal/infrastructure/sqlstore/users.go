package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownUser = errors.New("sqlstore: no address for user")

// UserDirectory keeps the last email seen for each user in the users table,
// so confirmations still find their recipient after a restart.
type UserDirectory struct {
	db *gorm.DB

	// seen holds the address last written per user. Tokens arrive on every
	// request; the row only changes when the address does.
	seen sync.Map
}

func (d *UserDirectory) Remember(ctx context.Context, userID, email string) error {
	if userID == "" || email == "" {
		return nil
	}
	if prev, ok := d.seen.Load(userID); ok && prev.(string) == email {
		return nil
	}
	row := userRow{UserID: userID, Email: email}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("sqlstore: remember user %s: %w", userID, err)
	}
	d.seen.Store(userID, email)
	return nil
}

func (d *UserDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	var row userRow
	err := d.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUnknownUser
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: user %s: %w", userID, err)
	}
	return row.Email, nil
}
