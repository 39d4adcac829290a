package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
)

const userColumns = `id, name, email, password_hash, location, summary, experience, skills, cv_pdf_url, cv_latex_url, created, updated`

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (string, error) {
	if u == nil {
		return "", fmt.Errorf("user is nil")
	}

	skills, err := encodeSkills(u.Skills)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	ts := now()
	_, err = r.conn.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Name, u.Email, u.PasswordHash, u.Location, u.Summary, u.Experience, skills, u.CVPdfURL, u.CVLatexURL, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperr.Wrap(err, apperr.Conflict, "User with this email already exists")
		}
		return "", err
	}

	u.ID = id
	u.Created = fromMillis(ts)
	u.Updated = u.Created
	return id, nil
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepo) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	var skills any
	if p.Skills != nil {
		s, err := encodeSkills(p.Skills)
		if err != nil {
			return nil, err
		}
		skills = s
	}

	res, err := r.conn.Exec(ctx, `UPDATE users SET
		name = COALESCE(?, name),
		location = COALESCE(?, location),
		summary = COALESCE(?, summary),
		experience = COALESCE(?, experience),
		skills = COALESCE(?, skills),
		updated = ?
		WHERE id = ?`,
		optional(p.Name), optional(p.Location), optional(p.Summary), optional(p.Experience), skills, now(), id)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res, "User not found"); err != nil {
		return nil, err
	}

	return r.GetUserByID(ctx, id)
}

// SetCVURLs records where the user's CV objects live. Nil arguments leave the
// stored value untouched; an empty string clears it.
func (r *SQLiteRepo) SetCVURLs(ctx context.Context, id string, pdfURL, latexURL *string) error {
	res, err := r.conn.Exec(ctx, `UPDATE users SET
		cv_pdf_url = COALESCE(?, cv_pdf_url),
		cv_latex_url = COALESCE(?, cv_latex_url),
		updated = ?
		WHERE id = ?`, optional(pdfURL), optional(latexURL), now(), id)
	if err != nil {
		return err
	}

	return requireRow(res, "User not found")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var pw sql.NullString
	var skills string
	var created, updated int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &pw, &u.Location, &u.Summary, &u.Experience, &skills, &u.CVPdfURL, &u.CVLatexURL, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	if pw.Valid {
		u.PasswordHash = pw.String
	}
	if err := json.Unmarshal([]byte(skills), &u.Skills); err != nil {
		return nil, fmt.Errorf("decode skills for user %s: %w", u.ID, err)
	}
	u.Created = fromMillis(created)
	u.Updated = fromMillis(updated)

	return &u, nil
}

func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(b), nil
}

// optional turns a nil pointer into SQL NULL so COALESCE keeps the stored value.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func requireRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "%s", notFound)
	}
	return nil
}
