package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// AppConfig represents the global configuration for the single-tenant deployment
// This is a singleton model (only one row should exist)
type AppConfig struct {
	BaseModel
	// Session cookie tokens are signed with this secret (64 hex chars,
	// auto-generated during first setup)
	SessionSecret string `json:"-" gorm:"type:varchar(64);not null"`

	// Stats rollup configuration (for the admin dashboard)
	StatsSchedule string     `json:"stats_schedule"` // Cron expression, e.g. "0 2 * * *", empty = no rollup
	LastStatsAt   *time.Time `json:"last_stats_at"`
	NextStatsAt   *time.Time `json:"next_stats_at"`
}

// User represents a patient or admin account
type User struct {
	BaseModel
	Username     string    `json:"username" gorm:"unique;not null"`
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name"`
	Contact      string    `json:"contact"`
	Address      string    `json:"address"`
	Role         string    `json:"role" gorm:"not null;default:user"` // open string enum: "user", "admin"
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Known role values. Role is an open string enum; only admin carries
// extra capability.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Prediction represents one risk assessment returned by the inference service
type Prediction struct {
	BaseModel
	UserID      string  `json:"user_id" gorm:"not null;index"`
	Features    string  `json:"features" gorm:"type:text;not null"` // JSON payload sent to the inference service
	Probability float64 `json:"probability" gorm:"not null"`
	RiskLevel   string  `json:"risk_level" gorm:"not null"` // "low", "moderate", "high"
	ModelName   string  `json:"model_name"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// Report statuses
const (
	ReportStatusPending = "pending"
	ReportStatusReady   = "ready"
	ReportStatusFailed  = "failed"
)

// Report represents a stored prediction summary built by the worker.
// Rendering (PDF etc.) is delegated to external tooling; only the
// aggregated summary lives here.
type Report struct {
	BaseModel
	UserID  string     `json:"user_id" gorm:"not null;index"`
	Title   string     `json:"title" gorm:"not null"`
	Status  string     `json:"status" gorm:"not null;default:pending"`
	Summary string     `json:"summary" gorm:"type:text"` // JSON aggregate of the user's predictions
	Error   string     `json:"error,omitempty"`
	ReadyAt *time.Time `json:"ready_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// Document statuses
const (
	DocumentStatusUploaded  = "uploaded"
	DocumentStatusIngesting = "ingesting"
	DocumentStatusIndexed   = "indexed"
	DocumentStatusFailed    = "failed"
)

// Document represents a knowledge-base file uploaded for the chatbot.
// The file content is forwarded to the RAG service; parsing happens there.
type Document struct {
	BaseModel
	Filename     string `json:"filename" gorm:"not null"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	StoragePath  string `json:"-" gorm:"not null"` // local spool path until ingestion completes
	Status       string `json:"status" gorm:"not null;default:uploaded"`
	Error        string `json:"error,omitempty"`
	UploadedByID string `json:"uploaded_by_id" gorm:"not null"`

	UploadedBy *User `json:"uploaded_by,omitempty" gorm:"foreignKey:UploadedByID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
}

// ChatMessage represents one turn of a user's chatbot conversation
type ChatMessage struct {
	BaseModel
	UserID  string `json:"user_id" gorm:"not null;index"`
	Role    string `json:"role" gorm:"not null"` // "user" or "assistant"
	Content string `json:"content" gorm:"type:text;not null"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// StatsSnapshot represents one scheduled rollup of admin dashboard counters
type StatsSnapshot struct {
	BaseModel
	TotalUsers       int64   `json:"total_users" gorm:"not null"`
	TotalPredictions int64   `json:"total_predictions" gorm:"not null"`
	TotalReports     int64   `json:"total_reports" gorm:"not null"`
	HighRiskCount    int64   `json:"high_risk_count" gorm:"not null"`
	AvgProbability   float64 `json:"avg_probability"`
}

// IdempotencyKey records a completed destructive operation so that a
// retried request with the same key returns the original outcome
// instead of re-executing
type IdempotencyKey struct {
	BaseModel
	Key        string `json:"key" gorm:"unique;not null"`
	Scope      string `json:"scope" gorm:"not null"` // e.g. "admin:delete_user", "admin:delete_document"
	ResourceID string `json:"resource_id" gorm:"not null"`
	StatusCode int    `json:"status_code" gorm:"not null"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &AppConfig{}, &Prediction{}, &Report{},
		&Document{}, &ChatMessage{}, &StatsSnapshot{}, &IdempotencyKey{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
