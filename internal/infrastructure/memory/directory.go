package memory

import (
	"context"
	"errors"
	"sync"
)

var ErrUnknownUser = errors.New("directory: no address for user")

// Directory remembers the email address last seen for each user.
type Directory struct {
	mu     sync.RWMutex
	emails map[string]string
}

func NewDirectory() *Directory {
	return &Directory{emails: make(map[string]string)}
}

// Remember records email for userID. Empty values are ignored. Addresses
// live only as long as the process; sqlstore.UserDirectory persists them.
func (d *Directory) Remember(ctx context.Context, userID, email string) error {
	_ = ctx
	if userID == "" || email == "" {
		return nil
	}
	d.mu.Lock()
	d.emails[userID] = email
	d.mu.Unlock()
	return nil
}

func (d *Directory) EmailFor(ctx context.Context, userID string) (string, error) {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()
	email, ok := d.emails[userID]
	if !ok {
		return "", ErrUnknownUser
	}
	return email, nil
}
