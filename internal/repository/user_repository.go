package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/table-slot-booking/internal/utils"
)

// User mirrors the 'users' table joined with the role name.
type User struct {
	ID            uint64
	Email         string
	PasswordHash  string
	Role          string
	DisplayName   string
	PaymentHandle string
	ConsentShare  bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// ErrUnknownRole is returned when a registration names a role that
// does not exist in the roles table. Roles are seeded by migration
// and assigned explicitly; there is no fallback grant.
var ErrUnknownRole = errors.New("unknown role")

const userSelect = `SELECT u.id, u.email, u.password_hash, r.name,
       u.display_name, u.payment_handle, u.consent_share,
       u.is_active, u.created_at, u.updated_at
       FROM users u JOIN roles r ON r.id = u.role_id`

// Create inserts a user with an explicit role and returns its ID.
// The role is resolved against the roles table inside the INSERT; a
// zero-row result for a known-good email means the role name was
// not found.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role_id)
		 SELECT ?, ?, id FROM roles WHERE name = ?`,
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrUnknownRole
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.DB.QueryRowContext(ctx, userSelect+" WHERE u.email=? LIMIT 1", email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
			&u.DisplayName, &u.PaymentHandle, &u.ConsentShare,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, userSelect+" WHERE u.id=? LIMIT 1", id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
			&u.DisplayName, &u.PaymentHandle, &u.ConsentShare,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdateProfile stores collaborator profile fields for the user.
// These feed form pre-fill and the owner export only; admission
// logic never reads them.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, displayName, paymentHandle string, consentShare bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET display_name=?, payment_handle=?, consent_share=? WHERE id=?",
		displayName, paymentHandle, consentShare, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Same-value update also reports zero rows; confirm the user exists.
		var exists uint64
		if err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE id=?", id).Scan(&exists); err != nil {
			return err
		}
	}
	return nil
}
