package identity

import (
	"errors"
	"slices"
	"time"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when registering a taken name.
	ErrUserExists = errors.New("user exists")

	// ErrInvalidCredentials is returned when a PIN does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRole is returned for an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

// Role is a participant's permission level.
type Role string

const (
	RoleGM     Role = "gm"
	RolePlayer Role = "player"
)

// User is a participant: the GM or a player owning characters.
type User struct {
	ID           string
	Name         string
	Role         Role
	PINHash      []byte
	CharacterIDs []string
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Name string
	PIN  string
	Role Role
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID       string   `json:"userId"`
	Name         string   `json:"name"`
	Role         Role     `json:"role"`
	CharacterIDs []string `json:"characterIds"`
}

// IsGM reports whether the caller holds GM authority.
func (p Principal) IsGM() bool {
	return p.Role == RoleGM
}

// CanActFor reports whether the caller may spend or sell for holderID: the
// GM acts for anyone, a player for themselves and their own characters.
func (p Principal) CanActFor(holderID string) bool {
	return p.IsGM() || holderID == p.UserID || slices.Contains(p.CharacterIDs, holderID)
}

// Principal returns the request identity for u.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Name: u.Name, Role: u.Role, CharacterIDs: slices.Clone(u.CharacterIDs)}
}
