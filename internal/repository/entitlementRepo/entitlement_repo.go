package entitlementRepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"partner-portal/internal/model/user"
)

// EntitlementRepository stores which custodian codes and consortium codes
// each user owns. Ownership rows live in user_local_authorities and
// user_consortia alongside the users table.
type EntitlementRepository struct {
	conn *pgx.Conn
}

func New(db *pgx.Conn) *EntitlementRepository {
	return &EntitlementRepository{conn: db}
}

func (r *EntitlementRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.conn.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadCodes(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *EntitlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	err := r.conn.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadCodes(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user with their owned code sets loaded.
func (r *EntitlementRepository) ListUsers(ctx context.Context) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, email, name, created_at FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := r.loadCodes(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *EntitlementRepository) loadCodes(ctx context.Context, u *user.User) error {
	rows, err := r.conn.Query(ctx,
		`SELECT code FROM user_local_authorities WHERE user_id = $1 ORDER BY code`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		u.AuthorityCodes = append(u.AuthorityCodes, code)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	consortiumRows, err := r.conn.Query(ctx,
		`SELECT code FROM user_consortia WHERE user_id = $1 ORDER BY code`, u.ID)
	if err != nil {
		return err
	}
	defer consortiumRows.Close()
	for consortiumRows.Next() {
		var code string
		if err := consortiumRows.Scan(&code); err != nil {
			return err
		}
		u.ConsortiumCodes = append(u.ConsortiumCodes, code)
	}
	return consortiumRows.Err()
}

// CreateUser provisions a portal account without any entitlements.
func (r *EntitlementRepository) CreateUser(ctx context.Context, u *user.User) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.Name, u.CreatedAt)
	return err
}

// GrantAuthorities adds direct custodian-code ownership rows. The whole
// grant commits or none of it does.
func (r *EntitlementRepository) GrantAuthorities(ctx context.Context, userID uuid.UUID, codes []string) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, code := range codes {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_local_authorities (user_id, code)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, code)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// RevokeAuthorities removes direct ownership rows. Validation that every
// code is actually owned happens in the service layer; here the removal is
// applied atomically.
func (r *EntitlementRepository) RevokeAuthorities(ctx context.Context, userID uuid.UUID, codes []string) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, code := range codes {
		_, err = tx.Exec(ctx,
			`DELETE FROM user_local_authorities WHERE user_id = $1 AND code = $2`,
			userID, code)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *EntitlementRepository) GrantConsortium(ctx context.Context, userID uuid.UUID, code string) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO user_consortia (user_id, code)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, code)
	return err
}

// PromoteToConsortia applies a reconciliation plan for one user as a single
// transaction: each consortium grant and the removal of its now-redundant
// member grants commit together or roll back together.
func (r *EntitlementRepository) PromoteToConsortia(ctx context.Context, userID uuid.UUID, promotions map[string][]string) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for consortium, members := range promotions {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_consortia (user_id, code)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, consortium)
		if err != nil {
			return err
		}
		for _, member := range members {
			_, err = tx.Exec(ctx,
				`DELETE FROM user_local_authorities WHERE user_id = $1 AND code = $2`,
				userID, member)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}
