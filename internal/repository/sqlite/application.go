package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/careerpal/pkg/models"
)

const applicationColumns = `id, user_id, company, role, match_score, status, notes, job_description, analysis, cover_letter, applied_at, created, updated`

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (string, error) {
	if a == nil {
		return "", fmt.Errorf("application is nil")
	}
	if a.Status == "" {
		a.Status = models.StatusDraft
	}
	if !a.Status.Valid() {
		return "", fmt.Errorf("invalid application status %q", a.Status)
	}

	var appliedAt sql.NullInt64
	if a.AppliedAt != nil {
		appliedAt = sql.NullInt64{Int64: a.AppliedAt.UTC().UnixMilli(), Valid: true}
	}

	id := uuid.NewString()
	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.UserID, a.Company, a.Role, a.MatchScore, string(a.Status), a.Notes, a.JobDescription, a.Analysis, a.CoverLetter, appliedAt, ts, ts)
	if err != nil {
		return "", err
	}

	a.ID = id
	a.Created = fromMillis(ts)
	a.Updated = a.Created
	return id, nil
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return a, nil
}

func (r *SQLiteRepo) ListApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+applicationColumns+` FROM applications WHERE user_id = ? ORDER BY created DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

// UpdateApplication applies a partial update in one statement. Setting the
// status to applied stamps applied_at with at; any other status leaves it as is.
func (r *SQLiteRepo) UpdateApplication(ctx context.Context, id string, u models.ApplicationUpdate, at time.Time) (*models.Application, error) {
	var status any
	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, fmt.Errorf("invalid application status %q", *u.Status)
		}
		status = string(*u.Status)
	}

	ts := ceilMillis(at)
	res, err := r.conn.Exec(ctx, `UPDATE applications SET
		status = COALESCE(?, status),
		notes = COALESCE(?, notes),
		applied_at = CASE WHEN ? = 'applied' THEN ? ELSE applied_at END,
		updated = ?
		WHERE id = ?`,
		status, optional(u.Notes), status, ts, ts, id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res, "Application not found"); err != nil {
		return nil, err
	}

	return r.GetApplication(ctx, id)
}

func (r *SQLiteRepo) SetCoverLetter(ctx context.Context, id, coverLetter string) error {
	res, err := r.conn.Exec(ctx, `UPDATE applications SET cover_letter = ?, updated = ? WHERE id = ?`, coverLetter, now(), id)
	if err != nil {
		return err
	}

	return requireRow(res, "Application not found")
}

func (r *SQLiteRepo) DeleteApplication(ctx context.Context, id string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return requireRow(res, "Application not found")
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	var status string
	var appliedAt sql.NullInt64
	var created, updated int64
	if err := row.Scan(&a.ID, &a.UserID, &a.Company, &a.Role, &a.MatchScore, &status, &a.Notes, &a.JobDescription, &a.Analysis, &a.CoverLetter, &appliedAt, &created, &updated); err != nil {
		return nil, err
	}

	a.Status = models.ApplicationStatus(status)
	a.AppliedAt = nullableMillis(appliedAt)
	a.Created = fromMillis(created)
	a.Updated = fromMillis(updated)

	return &a, nil
}
