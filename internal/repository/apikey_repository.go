package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/utils"
)

// APIKeyRepo persists and validates API keys (prefix + bcrypt hash columns).
type APIKeyRepo struct {
	DB   *sql.DB
	Cost int
}

func NewAPIKeyRepo(db *sql.DB, bcryptCost int) *APIKeyRepo {
	return &APIKeyRepo{DB: db, Cost: bcryptCost}
}

// IssueTx generates a key for userID, stores its hash within tx and returns
// the raw key. The raw key cannot be recovered later.
func (r *APIKeyRepo) IssueTx(ctx context.Context, tx *sql.Tx, userID uint64, admin bool) (string, error) {
	raw, prefix, err := utils.NewAPIKey()
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	hash, err := utils.HashAPIKey(raw, r.Cost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO api_keys (user_id, key_prefix, key_hash, admin) VALUES (?,?,?,?)",
		userID, prefix, hash, admin)
	if err != nil {
		if isDuplicate(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return raw, nil
}

// Authenticate resolves a raw key to its owner. The returned user carries
// the key's admin flag. Unknown or mismatching keys yield ErrAPIKeyNotFound.
func (r *APIKeyRepo) Authenticate(ctx context.Context, raw string) (model.User, error) {
	raw = strings.TrimSpace(raw)
	prefix, err := utils.KeyPrefix(raw)
	if err != nil {
		return model.User{}, ErrAPIKeyNotFound
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT k.key_hash, k.admin, u.id, u.username, u.email, u.created_at
		 FROM api_keys k JOIN users u ON u.id = k.user_id
		 WHERE k.key_prefix=?`, prefix)
	if err != nil {
		return model.User{}, fmt.Errorf("lookup api key: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			hash string
			u    model.User
		)
		if err := rows.Scan(&hash, &u.Admin, &u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return model.User{}, fmt.Errorf("scan api key: %w", err)
		}
		if utils.VerifyAPIKey(hash, raw) {
			return u, nil
		}
	}
	if err := rows.Err(); err != nil {
		return model.User{}, fmt.Errorf("lookup api key: %w", err)
	}
	return model.User{}, ErrAPIKeyNotFound
}
