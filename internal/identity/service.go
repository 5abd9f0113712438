package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service manages participants.
type Service struct {
	repo Repository

	// registerMu makes the first-user-is-GM check atomic.
	registerMu sync.Mutex
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a participant with a hashed PIN. The first participant
// ever registered becomes the GM regardless of the requested role.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	name := strings.TrimSpace(creds.Name)
	if name == "" {
		return User{}, errors.New("name is required")
	}
	if len(creds.PIN) < 4 {
		return User{}, errors.New("PIN must be at least 4 digits")
	}
	role := creds.Role
	if role == "" {
		role = RolePlayer
	}
	if role != RoleGM && role != RolePlayer {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	count, err := s.repo.Count(ctx)
	if err != nil {
		return User{}, err
	}
	if count == 0 {
		role = RoleGM
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         name,
		Role:         role,
		PINHash:      hash,
		CharacterIDs: []string{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies a participant's PIN.
func (s *Service) Authenticate(ctx context.Context, userID, pin string) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Get fetches a participant.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	return s.repo.FindByID(ctx, userID)
}

// AssignCharacter lets a player act for a character.
func (s *Service) AssignCharacter(ctx context.Context, userID, characterID string) (User, error) {
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return User{}, errors.New("character id is required")
	}
	if err := s.repo.AddCharacter(ctx, userID, characterID); err != nil {
		return User{}, err
	}
	return s.repo.FindByID(ctx, userID)
}
