package identity

import (
	"context"
	"slices"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == user.Name {
			return ErrUserExists
		}
	}
	user.CharacterIDs = slices.Clone(user.CharacterIDs)
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	user.CharacterIDs = slices.Clone(user.CharacterIDs)
	return user, nil
}

func (r *memoryRepository) FindByName(_ context.Context, name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Name == name {
			u.CharacterIDs = slices.Clone(u.CharacterIDs)
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepository) AddCharacter(_ context.Context, id, characterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if !slices.Contains(user.CharacterIDs, characterID) {
		user.CharacterIDs = append(slices.Clone(user.CharacterIDs), characterID)
		r.users[id] = user
	}
	return nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
