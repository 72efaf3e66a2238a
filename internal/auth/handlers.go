package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadoj/intel-backend/internal/middleware"
	"github.com/sadoj/intel-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db           *gorm.DB
	sessions     SessionStore
	ttl          time.Duration
	secureCookie bool
}

func NewHandler(db *gorm.DB, sessions SessionStore, ttl time.Duration, secureCookie bool) *Handler {
	return &Handler{db: db, sessions: sessions, ttl: ttl, secureCookie: secureCookie}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return middleware.SessionCookie(value, maxAge, h.secureCookie)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login accepts {username, password} as JSON, or the login form's
// agent_id/passcode fields.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "Invalid Data", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid Data", http.StatusBadRequest)
			return
		}
		creds.Username = r.PostForm.Get("agent_id")
		creds.Password = r.PostForm.Get("passcode")
	}

	var user User
	if err := h.db.WithContext(r.Context()).First(&user, "username = ?", creds.Username).Error; err != nil {
		http.Error(w, "Invalid credentials. Access Denied.", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(creds.Password)); err != nil {
		http.Error(w, "Invalid credentials. Access Denied.", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.UserID, h.ttl)
	if err != nil {
		logrus.Errorf("create session for %s: %v", user.Username, err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.SessionID, int(h.ttl.Seconds())))
	logrus.Infof("agent %s logged in", user.Username)

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.Delete(r.Context(), session.SessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully logged out.",
	})
}

type MeResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	EditMode    bool   `json:"edit_mode"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	var user User
	if err := h.db.WithContext(r.Context()).First(&user, "user_id = ?", session.UserID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		EditMode:    session.EditMode,
	})
}

// Register creates an agent account. Admin only.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}

	if user.Username == "" || user.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	switch user.Role {
	case "":
		user.Role = RoleAgent
	case RoleAgent, RoleAdmin:
	default:
		http.Error(w, "Unknown role", http.StatusBadRequest)
		return
	}

	created, err := CreateUser(h.db.WithContext(r.Context()), user.Username, user.Password, user.DisplayName, user.Role)
	if errors.Is(err, ErrUsernameTaken) {
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	}
	if err != nil {
		logrus.Errorf("register %s: %v", user.Username, err)
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":  created.UserID,
		"username": created.Username,
	})
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.NewPassword == "" {
		http.Error(w, "Current and new password are required", http.StatusBadRequest)
		return
	}

	var user User
	if err := h.db.WithContext(r.Context()).First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.CurrentPassword)); err != nil {
		http.Error(w, "Invalid current password", http.StatusUnauthorized)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}

	if err := h.db.WithContext(r.Context()).Model(&user).Update("hashed_password", string(hashed)).Error; err != nil {
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}

func (h *Handler) EditMode(w http.ResponseWriter, r *http.Request) {
	session, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"edit_mode": session.EditMode})
}

// ToggleEditMode flips edit mode for the calling session only.
func (h *Handler) ToggleEditMode(w http.ResponseWriter, r *http.Request) {
	session, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	enabled, err := h.sessions.ToggleEditMode(r.Context(), session.SessionID)
	if err != nil {
		logrus.Errorf("toggle edit mode for %s: %v", session.UserID, err)
		http.Error(w, "Failed to toggle edit mode", http.StatusInternalServerError)
		return
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	logrus.Infof("edit mode %s for user %s", state, session.UserID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"edit_mode": enabled,
		"message":   "Edit mode " + state,
	})
}

var ErrUsernameTaken = errors.New("username already taken")

// CreateUser hashes password and inserts a new agent.
func CreateUser(db *gorm.DB, username, password, displayName, role string) (User, error) {
	var count int64
	if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		UserID:         uuid.NewString(),
		Username:       username,
		HashedPassword: string(hashed),
		DisplayName:    displayName,
		Role:           role,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return user, nil
}
