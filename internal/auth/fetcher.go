package auth

import (
	"context"
	"time"

	"github.com/sadoj/intel-backend/internal/middleware"
	"github.com/sadoj/intel-backend/internal/utils"
	"gorm.io/gorm"
)

var (
	_ middleware.SessionFetcher   = SessionInfo{}
	_ middleware.SessionRefresher = SessionInfo{}
	_ middleware.SecureCookies    = SessionInfo{}
	_ middleware.RoleLookup       = UserRoles{}
)

// SessionInfo adapts a SessionStore to the session middleware.
type SessionInfo struct {
	Store  SessionStore
	TTL    time.Duration
	Secure bool
}

func (si SessionInfo) FindSessionByID(ctx context.Context, id string) (utils.SessionData, error) {
	session, err := si.Store.Find(ctx, id)
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		EditMode:  session.EditMode,
	}, nil
}

func (si SessionInfo) RefreshSession(ctx context.Context, id string) (time.Time, error) {
	return si.Store.Refresh(ctx, id, si.TTL)
}

func (si SessionInfo) SecureCookies() bool {
	return si.Secure
}

type UserRoles struct {
	DB *gorm.DB
}

func (ur UserRoles) FindRole(ctx context.Context, userID string) (string, error) {
	var user User
	if err := ur.DB.WithContext(ctx).Select("user_id", "role").First(&user, "user_id = ?", userID).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}
