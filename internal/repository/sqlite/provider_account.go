package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerpal/pkg/models"
)

// UpsertProviderAccount stores the tokens of a completed OAuth exchange,
// replacing any earlier link between the same user and provider.
func (r *SQLiteRepo) UpsertProviderAccount(ctx context.Context, a *models.ProviderAccount) error {
	if a == nil {
		return fmt.Errorf("provider account is nil")
	}

	var expires sql.NullInt64
	if a.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: a.ExpiresAt.UTC().UnixMilli(), Valid: true}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO provider_accounts (id, user_id, provider, access_token, refresh_token, expires_at, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated = excluded.updated`,
		a.ID, a.UserID, a.Provider, a.AccessToken, a.RefreshToken, expires, ts, ts)
	if err != nil {
		return err
	}

	r.logger.Debug("provider account linked", "user_id", a.UserID, "provider", a.Provider)
	return nil
}

func (r *SQLiteRepo) ListProviderAccounts(ctx context.Context, userID string) ([]models.ProviderAccount, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, provider, access_token, refresh_token, expires_at, created, updated
		FROM provider_accounts WHERE user_id = ? ORDER BY provider`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ProviderAccount{}
	for rows.Next() {
		var a models.ProviderAccount
		var expires sql.NullInt64
		var created, updated int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.AccessToken, &a.RefreshToken, &expires, &created, &updated); err != nil {
			return nil, err
		}
		a.ExpiresAt = nullableMillis(expires)
		a.Created = fromMillis(created)
		a.Updated = fromMillis(updated)
		out = append(out, a)
	}

	return out, rows.Err()
}
