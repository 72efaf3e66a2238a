package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps sessions and their edit-mode flag. Each session has a
// single writer (its owner) so last-write-wins is acceptable everywhere.
type SessionStore interface {
	// Create replaces any session the user already has with a fresh one
	// whose edit mode is off.
	Create(ctx context.Context, userID string, ttl time.Duration) (Session, error)
	Find(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
	// Refresh pushes the expiry out to now+ttl.
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) (time.Time, error)
	// ToggleEditMode flips the flag and returns the new value.
	ToggleEditMode(ctx context.Context, sessionID string) (bool, error)
}

var _ SessionStore = (*GormSessionStore)(nil)

type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (g *GormSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	session := Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (g *GormSessionStore) Find(ctx context.Context, sessionID string) (Session, error) {
	var session Session
	err := g.db.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrSessionNotFound
	}
	return session, err
}

func (g *GormSessionStore) Delete(ctx context.Context, sessionID string) error {
	res := g.db.WithContext(ctx).Delete(&Session{}, "session_id = ?", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (g *GormSessionStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	res := g.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		return time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		return time.Time{}, ErrSessionNotFound
	}
	return expiresAt, nil
}

func (g *GormSessionStore) ToggleEditMode(ctx context.Context, sessionID string) (bool, error) {
	var enabled bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session Session
		if err := tx.First(&session, "session_id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		enabled = !session.EditMode
		return tx.Model(&Session{}).
			Where("session_id = ?", sessionID).
			Update("edit_mode", enabled).Error
	})
	return enabled, err
}
