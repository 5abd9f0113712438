package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByName(ctx context.Context, name string) (User, error)
	AddCharacter(ctx context.Context, id, characterID string) error
	Count(ctx context.Context) (int, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	characters := user.CharacterIDs
	if characters == nil {
		characters = []string{}
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, name, role, pin_hash, character_ids, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, userID, user.Name, string(user.Role), user.PINHash, characters, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT id, name, role, pin_hash, character_ids, created_at FROM users WHERE id = $1`, userID))
}

// FindByName fetches a user by display name.
func (r *PostgresRepository) FindByName(ctx context.Context, name string) (User, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT id, name, role, pin_hash, character_ids, created_at FROM users WHERE name = $1`, name))
}

// AddCharacter links a character to a user.
func (r *PostgresRepository) AddCharacter(ctx context.Context, id, characterID string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET character_ids = array_append(character_ids, $1)
        WHERE id = $2 AND NOT ($1 = ANY(character_ids))`, characterID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of registered users.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PostgresRepository) scan(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		role      string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Name, &role, &user.PINHash, &user.CharacterIDs, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
