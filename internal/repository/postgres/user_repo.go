package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, pwd_hash, description, collection_ids, is_admin, is_blocked, created_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, description)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, u.Description)
	if isUniqueViolation(err) {
		if strings.Contains(violatedConstraint(err), "email") {
			return errs.New(errs.ErrAlreadyExists, "This email is already taken")
		}
		return errs.New(errs.ErrAlreadyExists, "This username is already taken")
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.getOne(ctx, q, id)
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.getOne(ctx, q, username)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ExistsUsername reports whether the username is taken.
func (r *UserRepo) ExistsUsername(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`
	var ok bool
	err := r.db.Pool.QueryRow(ctx, q, username).Scan(&ok)
	return ok, err
}

// ExistsEmail reports whether the email is taken.
func (r *UserRepo) ExistsEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`
	var ok bool
	err := r.db.Pool.QueryRow(ctx, q, email).Scan(&ok)
	return ok, err
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetDescription updates the profile description.
func (r *UserRepo) SetDescription(ctx context.Context, id uuid.UUID, description string) error {
	const q = `UPDATE users SET description=$2 WHERE id=$1`
	return r.execOne(ctx, q, id, description)
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM users WHERE id=$1`
	return r.execOne(ctx, q, id)
}

// AppendCollection appends a collection id to the user's list in one statement.
func (r *UserRepo) AppendCollection(ctx context.Context, id, collectionID uuid.UUID) error {
	const q = `UPDATE users SET collection_ids = array_append(collection_ids, $2) WHERE id=$1`
	return r.execOne(ctx, q, id, collectionID)
}

// RemoveCollection removes a collection id from the user's list in one statement.
func (r *UserRepo) RemoveCollection(ctx context.Context, id, collectionID uuid.UUID) error {
	const q = `UPDATE users SET collection_ids = array_remove(collection_ids, $2) WHERE id=$1`
	return r.execOne(ctx, q, id, collectionID)
}

// execOne runs a statement that must touch exactly one user row.
func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.Description,
		&u.Collections, &u.IsAdmin, &u.IsBlocked, &u.CreatedAt); err != nil {
		return nil, err
	}
	if u.Collections == nil {
		u.Collections = []uuid.UUID{}
	}
	return &u, nil
}
