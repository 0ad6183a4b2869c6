package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups when no row matches. Callers must
// compare with errors.Is; the gorm sentinel never escapes this package.
var ErrNotFound = errors.New("record not found")

// Store 封装所有数据库访问。上层只依赖这里的方法，
// 不直接接触 *gorm.DB。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New wraps an open gorm connection.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Migrate creates or updates the schema for all models.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&User{},
		&Project{},
		&Artifact{},
		&ServiceCredential{},
		&PromptTemplate{},
	)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// --- projects ---

func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// ProjectByID enforces ownership: a project is only visible to its owner.
func (s *Store) ProjectByID(ctx context.Context, id, userID string) (*Project, error) {
	var p Project
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	var out []Project
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteProject removes the project and its artifacts.
func (s *Store) DeleteProject(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("project_id = ?", id).Delete(&Artifact{}).Error
	})
}

// --- artifacts ---

func (s *Store) CreateArtifact(ctx context.Context, a *Artifact) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// ArtifactByID joins through the project so ownership is checked in one
// round trip.
func (s *Store) ArtifactByID(ctx context.Context, id, userID string) (*Artifact, error) {
	var a Artifact
	err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = artifacts.project_id").
		Where("artifacts.id = ? AND projects.user_id = ?", id, userID).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) ArtifactsByProject(ctx context.Context, projectID string) ([]Artifact, error) {
	var out []Artifact
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Artifact{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateArtifact persists a partial column set on one artifact. fields
// uses gorm column naming.
func (s *Store) UpdateArtifact(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Artifact{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- service credentials ---

func (s *Store) CredentialByService(ctx context.Context, serviceName string) (*ServiceCredential, error) {
	var c ServiceCredential
	err := s.db.WithContext(ctx).Where("service_name = ?", serviceName).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) Credentials(ctx context.Context) ([]ServiceCredential, error) {
	var out []ServiceCredential
	err := s.db.WithContext(ctx).Order("service_name").Find(&out).Error
	return out, err
}

// UpsertCredential inserts or fully replaces the credential for a service.
func (s *Store) UpsertCredential(ctx context.Context, c *ServiceCredential) error {
	existing, err := s.CredentialByService(ctx, c.ServiceName)
	if errors.Is(err, ErrNotFound) {
		return s.db.WithContext(ctx).Create(c).Error
	}
	if err != nil {
		return err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(c).Error
}

// --- prompt templates ---

func (s *Store) TemplateByName(ctx context.Context, name string) (*PromptTemplate, error) {
	var t PromptTemplate
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) Templates(ctx context.Context) ([]PromptTemplate, error) {
	var out []PromptTemplate
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (s *Store) UpsertTemplate(ctx context.Context, t *PromptTemplate) error {
	existing, err := s.TemplateByName(ctx, t.Name)
	if errors.Is(err, ErrNotFound) {
		return s.db.WithContext(ctx).Create(t).Error
	}
	if err != nil {
		return err
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(t).Error
}
