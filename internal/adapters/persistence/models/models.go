package models

import (
	"time"

	"campus-admissions/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Staff accounts
// ============================================================

// Staff roles
const (
	RoleAdmin    = "ADMIN"
	RoleReviewer = "REVIEWER"
)

// User represents users table (staff who review applications)
type User struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'REVIEWER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// ============================================================
// Application aggregate
// ============================================================

// Application is the aggregate root of an admission application
type Application struct {
	ID                uint64                   `gorm:"primaryKey" json:"-"`
	ApplicationNumber string                   `gorm:"size:20;uniqueIndex;not null" json:"application_number"`
	Status            domain.ApplicationStatus `gorm:"size:30;not null;index" json:"status"`

	// Personal
	FullName          string     `gorm:"size:150;not null" json:"full_name"`
	DateOfBirth       *time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender            string     `gorm:"size:20" json:"gender"`
	Nationality       string     `gorm:"size:50" json:"nationality"`
	CitizenshipNumber string     `gorm:"size:50" json:"citizenship_number"`

	// Contact
	Email            string `gorm:"size:100;index" json:"email"`
	Phone            string `gorm:"size:20" json:"phone"`
	PermanentAddress string `gorm:"type:text" json:"permanent_address"`
	TemporaryAddress string `gorm:"type:text" json:"temporary_address"`

	// Family
	FatherName       string `gorm:"size:150" json:"father_name"`
	MotherName       string `gorm:"size:150" json:"mother_name"`
	GuardianName     string `gorm:"size:150" json:"guardian_name"`
	GuardianRelation string `gorm:"size:50" json:"guardian_relation"`
	GuardianPhone    string `gorm:"size:20" json:"guardian_phone"`

	// Program
	ProgramApplied    string `gorm:"size:100;not null;index" json:"program_applied"`
	PreferredShift    string `gorm:"size:20" json:"preferred_shift"`
	DeclarationAgreed bool   `gorm:"default:false" json:"declaration_agreed"`

	// Review
	ReviewedBy      *uint64    `json:"-"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	EducationRecords []EducationRecord          `gorm:"foreignKey:ApplicationID" json:"education_records,omitempty"`
	Documents        []ApplicationDocument      `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	StatusHistory    []ApplicationStatusHistory `gorm:"foreignKey:ApplicationID" json:"status_history,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// EducationRecord is one prior qualification of an applicant
type EducationRecord struct {
	ID            uint64    `gorm:"primaryKey" json:"-"`
	ApplicationID uint64    `gorm:"not null;index" json:"-"`
	Level         string    `gorm:"size:50;not null" json:"level"`
	Institution   string    `gorm:"size:200;not null" json:"institution"`
	Board         string    `gorm:"size:100" json:"board"`
	PassedYear    int       `json:"passed_year"`
	Score         float64   `gorm:"type:decimal(6,2)" json:"score"`
	ScoreType     string    `gorm:"size:20" json:"score_type"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (EducationRecord) TableName() string {
	return "education_records"
}

// ApplicationDocument is one uploaded artifact of an application
type ApplicationDocument struct {
	ID            uint64              `gorm:"primaryKey" json:"-"`
	ApplicationID uint64              `gorm:"not null;index" json:"-"`
	DocumentType  domain.DocumentType `gorm:"size:50;not null" json:"document_type"`
	FilePath      string              `gorm:"size:255;not null" json:"file_path"`
	IsRequired    bool                `gorm:"default:false" json:"is_required"`
	IsSubmitted   bool                `gorm:"default:false" json:"is_submitted"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}

// ApplicationStatusHistory is one row of the append-only audit ledger
type ApplicationStatusHistory struct {
	ID            uint64                    `gorm:"primaryKey" json:"-"`
	ApplicationID uint64                    `gorm:"not null;index:idx_history_app_created,priority:1" json:"-"`
	FromStatus    *domain.ApplicationStatus `gorm:"size:30" json:"from_status"`
	ToStatus      domain.ApplicationStatus  `gorm:"size:30;not null" json:"to_status"`
	ChangedBy     *uint64                   `json:"-"`
	Reason        *string                   `gorm:"type:text" json:"reason"`
	Notes         *string                   `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time                 `gorm:"autoCreateTime;index:idx_history_app_created,priority:2" json:"created_at"`
}

func (ApplicationStatusHistory) TableName() string {
	return "application_status_histories"
}

// ApplicationSequence is the per-year counter behind application numbers
type ApplicationSequence struct {
	Year      int       `gorm:"column:seq_year;primaryKey;autoIncrement:false" json:"year"`
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ApplicationSequence) TableName() string {
	return "application_sequences"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Application{},
		&EducationRecord{},
		&ApplicationDocument{},
		&ApplicationStatusHistory{},
		&ApplicationSequence{},
	)
}
