package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is an authenticated account. Session handling lives outside the
// core; handlers receive an already-verified identity.
type User struct {
	ID             string `gorm:"primaryKey;size:36"`
	Email          string `gorm:"uniqueIndex;size:255;not null"`
	Name           string `gorm:"size:255"`
	HashedPassword string `gorm:"size:255"`
	Role           string `gorm:"size:16;default:USER"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Project groups artifacts under one owner.
type Project struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"index;size:36;not null"`
	Name        string `gorm:"size:255;not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Artifact is a single photographed object and everything the AI pipeline
// derived from it. AnalysisResult and ModelURLs are serialized JSON.
type Artifact struct {
	ID               string `gorm:"primaryKey;size:36"`
	ProjectID        string `gorm:"index;size:36;not null"`
	Name             string `gorm:"size:255;not null"`
	OriginalImageURL string
	AnalysisResult   string
	RestoredImageURL string
	MeshyTaskID      string `gorm:"size:128"`
	MeshyStatus      string `gorm:"size:32"`
	ModelURLs        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ServiceCredential configures one external AI vendor. A credential is
// usable only if IsActive is true and APIKey is non-empty; an empty key
// means "unconfigured".
type ServiceCredential struct {
	ID          string  `gorm:"primaryKey;size:36"`
	ServiceName string  `gorm:"uniqueIndex;size:32;not null"`
	APIKey      string  `gorm:"size:512"`
	Model       string  `gorm:"size:128"`
	Temperature float64 `gorm:"default:0.7"`
	MaxTokens   int     `gorm:"default:2000"`
	ExtraConfig string  // opaque JSON, interpreted per vendor
	IsActive    bool    `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Usable reports whether the credential qualifies for provider selection.
func (c ServiceCredential) Usable() bool {
	return c.IsActive && c.APIKey != ""
}

// PromptTemplate is a named prompt with a {{prompt}} placeholder.
type PromptTemplate struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex;size:64;not null"`
	Description string
	Template    string `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error              { ensureID(&u.ID); return nil }
func (p *Project) BeforeCreate(*gorm.DB) error           { ensureID(&p.ID); return nil }
func (a *Artifact) BeforeCreate(*gorm.DB) error          { ensureID(&a.ID); return nil }
func (c *ServiceCredential) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }
func (t *PromptTemplate) BeforeCreate(*gorm.DB) error    { ensureID(&t.ID); return nil }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
