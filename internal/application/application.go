package application

import (
	"context"
	"errors"
	"fmt"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

var (
	// ErrValidation marks input the caller must fix.
	ErrValidation = errors.New("validation failed")
	// ErrRepository marks a storage fault that is not a domain outcome.
	ErrRepository = errors.New("repository failure")
)

func NewValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// WrapRepository tags err as a storage fault unless it already matches one
// of the domain sentinels in known.
func WrapRepository(err error, known ...error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
