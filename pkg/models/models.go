package models

import "time"

// Domain models matching the database schema in db/migrations/0001_init.sql

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name" validate:"required"`
	Email        string    `json:"email" db:"email" validate:"required,email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Location     string    `json:"location" db:"location"`
	Summary      string    `json:"summary" db:"summary"`
	Experience   string    `json:"experience" db:"experience"`
	Skills       []string  `json:"skills" db:"skills"`
	CVPdfURL     string    `json:"cvPdfUrl,omitempty" db:"cv_pdf_url"`
	CVLatexURL   string    `json:"cvLatexUrl,omitempty" db:"cv_latex_url"`
	Created      time.Time `json:"createdAt" db:"created"`
	Updated      time.Time `json:"updatedAt" db:"updated"`
}

// UserSummary is the public subset of a User returned by auth endpoints.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) ToSummary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// ProfileUpdate carries the editable CV profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Location   *string  `json:"location,omitempty" validate:"omitempty,max=200"`
	Summary    *string  `json:"summary,omitempty" validate:"omitempty,max=5000"`
	Experience *string  `json:"experience,omitempty" validate:"omitempty,max=20000"`
	Skills     []string `json:"skills,omitempty" validate:"omitempty,max=100,dive,min=1,max=100"`
}

type ApplicationStatus string

const (
	StatusDraft        ApplicationStatus = "draft"
	StatusApplied      ApplicationStatus = "applied"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusOffer        ApplicationStatus = "offer"
	StatusRejected     ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusApplied, StatusInterviewing, StatusOffer, StatusRejected:
		return true
	}
	return false
}

type Application struct {
	ID             string            `json:"id" db:"id"`
	UserID         string            `json:"userId" db:"user_id"`
	Company        string            `json:"company" db:"company"`
	Role           string            `json:"role" db:"role"`
	MatchScore     int               `json:"matchScore" db:"match_score"`
	Status         ApplicationStatus `json:"status" db:"status"`
	Notes          string            `json:"notes" db:"notes"`
	JobDescription string            `json:"jobDescription" db:"job_description"`
	Analysis       string            `json:"analysis,omitempty" db:"analysis"`
	CoverLetter    string            `json:"coverLetter,omitempty" db:"cover_letter"`
	AppliedAt      *time.Time        `json:"appliedAt" db:"applied_at"`
	Created        time.Time         `json:"createdAt" db:"created"`
	Updated        time.Time         `json:"updatedAt" db:"updated"`
}

// ApplicationUpdate is a partial update. Nil fields are left untouched.
type ApplicationUpdate struct {
	Status *ApplicationStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

// JobAnalysisResult is the structured fit analysis produced by the model.
type JobAnalysisResult struct {
	Company       string   `json:"company"`
	Role          string   `json:"role"`
	MatchScore    int      `json:"matchScore"`
	Requirements  []string `json:"requirements"`
	MatchedSkills []string `json:"matchedSkills"`
	Gaps          []string `json:"gaps"`
	Summary       string   `json:"summary,omitempty"`
}

// ProviderAccount links a user to a social provider after a completed OAuth exchange.
type ProviderAccount struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"userId" db:"user_id"`
	Provider     string     `json:"provider" db:"provider"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	Created      time.Time  `json:"createdAt" db:"created"`
	Updated      time.Time  `json:"updatedAt" db:"updated"`
}
