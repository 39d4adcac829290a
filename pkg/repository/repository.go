package repository

import (
	"context"
	"time"

	"github.com/garnizeh/careerpal/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Getters return (nil, nil) when the record does not exist. Mutators that
// target a single row by id return an apperr.NotFound error instead.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (string, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error)
	SetCVURLs(ctx context.Context, id string, pdfURL, latexURL *string) error
}

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.Application) (string, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error)
	UpdateApplication(ctx context.Context, id string, u models.ApplicationUpdate, now time.Time) (*models.Application, error)
	SetCoverLetter(ctx context.Context, id, coverLetter string) error
	DeleteApplication(ctx context.Context, id string) error
}

type ProviderAccountRepo interface {
	UpsertProviderAccount(ctx context.Context, a *models.ProviderAccount) error
	ListProviderAccounts(ctx context.Context, userID string) ([]models.ProviderAccount, error)
}
