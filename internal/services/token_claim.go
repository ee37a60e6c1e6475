package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

// tokenClaim describes a single-use token row and how to mark it consumed.
type tokenClaim struct {
	model          any
	consumedColumn string
	scope          func(*gorm.DB) *gorm.DB
	updates        map[string]any
}

type tokenState struct {
	ConsumedAt *time.Time
	ExpiresAt  time.Time
}

// claim flips the consumed column in one conditional UPDATE. When no row
// changes, the stored row is inspected to report why. A consumed token
// always reports ErrTokenAlreadyConsumed, even when it has also expired.
func (c tokenClaim) claim(tx *gorm.DB, now time.Time) error {
	updates := map[string]any{c.consumedColumn: now}
	for key, value := range c.updates {
		updates[key] = value
	}

	unconsumed := fmt.Sprintf("%s IS NULL", c.consumedColumn)
	result := c.scope(tx.Model(c.model)).
		Where(unconsumed).
		Where("expires_at > ?", now).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("claim token: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var states []tokenState
	columns := fmt.Sprintf("%s AS consumed_at, expires_at", c.consumedColumn)
	if err := c.scope(tx.Model(c.model)).
		Select(columns).
		Order("created_at DESC").
		Limit(1).
		Scan(&states).Error; err != nil {
		return fmt.Errorf("inspect token: %w", err)
	}

	switch {
	case len(states) == 0:
		return apperrors.ErrTokenNotFound
	case states[0].ConsumedAt != nil:
		return apperrors.ErrTokenAlreadyConsumed
	case !now.Before(states[0].ExpiresAt):
		return apperrors.ErrTokenExpired
	default:
		// Lost a race with a concurrent redemption.
		return apperrors.ErrTokenAlreadyConsumed
	}
}
