package auth

import "time"

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Session is the server-side state behind the session_id cookie. An agent
// holds at most one session; EditMode gates every mutating intelligence call.
type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	EditMode  bool      `gorm:"not null;default:false" json:"edit_mode"`
}

// User is an agent account.
type User struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	Password       string    `gorm:"-" json:"password,omitempty"`
	HashedPassword string    `gorm:"not null" json:"-"`
	DisplayName    string    `json:"display_name"`
	Role           string    `gorm:"not null;default:'agent'" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }
func (User) TableName() string    { return "agents" }
