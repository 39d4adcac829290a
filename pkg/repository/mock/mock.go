package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/careerpal/internal/apperr"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/repository"
)

var _ repository.UserRepo = (*mockUserRepo)(nil)
var _ repository.ApplicationRepo = (*mockApplicationRepo)(nil)
var _ repository.ProviderAccountRepo = (*mockProviderAccountRepo)(nil)

// Test helpers and mocks
type Mocks struct {
	UserRepo     *mockUserRepo
	AppRepo      *mockApplicationRepo
	AccountsRepo *mockProviderAccountRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		UserRepo:     &mockUserRepo{Users: map[string]*models.User{}},
		AppRepo:      &mockApplicationRepo{Apps: map[string]*models.Application{}},
		AccountsRepo: &mockProviderAccountRepo{},
	}
}

type mockUserRepo struct {
	mu        sync.Mutex
	Users     map[string]*models.User
	CreateErr error
	GetErr    error
	nextID    int
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return "", apperr.New(apperr.Conflict, "User with this email already exists")
		}
	}
	m.nextID++
	cp := *u
	cp.ID = fmt.Sprintf("user-%d", m.nextID)
	cp.Created = time.Now().UTC()
	cp.Updated = cp.Created
	m.Users[cp.ID] = &cp
	u.ID = cp.ID
	return cp.ID, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if u, ok := m.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Summary != nil {
		u.Summary = *p.Summary
	}
	if p.Experience != nil {
		u.Experience = *p.Experience
	}
	if p.Skills != nil {
		u.Skills = append([]string(nil), p.Skills...)
	}
	u.Updated = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) SetCVURLs(ctx context.Context, id string, pdfURL, latexURL *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "User not found")
	}
	if pdfURL != nil {
		u.CVPdfURL = *pdfURL
	}
	if latexURL != nil {
		u.CVLatexURL = *latexURL
	}
	return nil
}

type mockApplicationRepo struct {
	mu        sync.Mutex
	Apps      map[string]*models.Application
	CreateErr error
	UpdateErr error
	DeleteErr error
	nextID    int
}

func (m *mockApplicationRepo) CreateApplication(ctx context.Context, a *models.Application) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if a.Status == "" {
		a.Status = models.StatusDraft
	}
	m.nextID++
	a.ID = fmt.Sprintf("app-%d", m.nextID)
	a.Created = time.Now().UTC()
	a.Updated = a.Created
	cp := *a
	m.Apps[a.ID] = &cp
	return a.ID, nil
}

func (m *mockApplicationRepo) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Apps[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockApplicationRepo) ListApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Application{}
	for _, a := range m.Apps {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockApplicationRepo) UpdateApplication(ctx context.Context, id string, u models.ApplicationUpdate, now time.Time) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	a, ok := m.Apps[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "Application not found")
	}
	if u.Status != nil {
		a.Status = *u.Status
		if *u.Status == models.StatusApplied {
			t := now.UTC()
			a.AppliedAt = &t
		}
	}
	if u.Notes != nil {
		a.Notes = *u.Notes
	}
	a.Updated = now.UTC()
	cp := *a
	return &cp, nil
}

func (m *mockApplicationRepo) SetCoverLetter(ctx context.Context, id, coverLetter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Apps[id]
	if !ok {
		return apperr.New(apperr.NotFound, "Application not found")
	}
	a.CoverLetter = coverLetter
	return nil
}

func (m *mockApplicationRepo) DeleteApplication(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.Apps[id]; !ok {
		return apperr.New(apperr.NotFound, "Application not found")
	}
	delete(m.Apps, id)
	return nil
}

type mockProviderAccountRepo struct {
	mu        sync.Mutex
	Accounts  []models.ProviderAccount
	UpsertErr error
}

func (m *mockProviderAccountRepo) UpsertProviderAccount(ctx context.Context, a *models.ProviderAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for i := range m.Accounts {
		if m.Accounts[i].UserID == a.UserID && m.Accounts[i].Provider == a.Provider {
			m.Accounts[i] = *a
			return nil
		}
	}
	m.Accounts = append(m.Accounts, *a)
	return nil
}

func (m *mockProviderAccountRepo) ListProviderAccounts(ctx context.Context, userID string) ([]models.ProviderAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ProviderAccount{}
	for _, a := range m.Accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
