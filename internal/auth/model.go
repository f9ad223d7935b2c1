package auth

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the full stored identity, including the credential digest and
// lockout bookkeeping. It is never serialized directly.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           string
	IsActive       bool
	LastLogin      *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockState extracts the lockout fields for the state machine.
func (a Account) LockState() LockState {
	return LockState{FailedAttempts: a.FailedAttempts, LockedUntil: a.LockedUntil}
}

// AccountView is the public-safe subset returned to clients.
type AccountView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// View returns the fields exposed by register and login responses.
func (a Account) View() AccountView {
	return AccountView{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

// ProfileView additionally carries the last login timestamp.
func (a Account) ProfileView() AccountView {
	view := a.View()
	view.LastLogin = a.LastLogin
	return view
}
