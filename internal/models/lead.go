package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeadStatus represents the lifecycle status of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusReviewing LeadStatus = "reviewing"
	LeadStatusAccepted  LeadStatus = "accepted"
	LeadStatusRejected  LeadStatus = "rejected"
)

// LeadFlags is the boolean flag set produced by lead scoring
type LeadFlags struct {
	NoPension        bool `json:"no_pension"`
	UnpaidOvertime   bool `json:"unpaid_overtime"`
	NoTravel         bool `json:"no_travel"`
	VacationIssue    bool `json:"vacation_issue"`
	SickDaysIssue    bool `json:"sick_days_issue"`
	TerminationFlag  bool `json:"termination_flag"`
	RecentEmployment bool `json:"recent_employment"`
}

// Lead represents one applicant's case, created on intake submission
type Lead struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Status    LeadStatus `gorm:"size:32;default:new;index" json:"status"`

	// Identity / contact
	FullName string `gorm:"not null;size:255" json:"full_name"`
	Phone    string `gorm:"size:64" json:"phone"`
	Email    string `gorm:"not null;size:255;index" json:"email"`
	City     string `gorm:"size:255" json:"city"`

	// Employment facts
	EmployerName          string  `gorm:"size:255" json:"employer_name"`
	RoleTitle             string  `gorm:"size:255" json:"role_title"`
	EmploymentType        string  `gorm:"size:64" json:"employment_type"`
	StartDate             string  `gorm:"size:32" json:"start_date"`
	EndDate               string  `gorm:"size:32" json:"end_date,omitempty"`
	StillEmployed         bool    `json:"still_employed"`
	AvgMonthlySalary      float64 `json:"avg_monthly_salary"`
	PaidOvertime          string  `gorm:"size:32" json:"paid_overtime"`
	OvertimeHoursEstimate string  `gorm:"size:64" json:"overtime_hours_estimate,omitempty"`
	AttendanceTracking    string  `gorm:"size:32" json:"attendance_tracking"`
	PensionProvided       string  `gorm:"size:32" json:"pension_provided"`
	PensionRateKnown      string  `gorm:"size:32" json:"pension_rate_known,omitempty"`
	TravelReimbursement   string  `gorm:"size:32" json:"travel_reimbursement"`
	VacationBalanceIssue  string  `gorm:"size:32" json:"vacation_balance_issue"`
	SickDaysIssue         string  `gorm:"size:32" json:"sick_days_issue"`
	TerminationType       string  `gorm:"size:32" json:"termination_type,omitempty"`
	TerminationDate       string  `gorm:"size:32" json:"termination_date,omitempty"`
	ReasonForCheck        string  `json:"reason_for_check"`
	Consent               bool    `json:"consent"`
	MarketingSource       string  `gorm:"size:255" json:"marketing_source,omitempty"`

	// Computed by scoring on intake
	LeadScore int                           `json:"lead_score"`
	LeadFlags datatypes.JSONType[LeadFlags] `json:"lead_flags"`

	// Staff-managed
	AdminNotes    string     `json:"admin_notes,omitempty"`
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`

	// Relationships
	Conversations []EmailConversation `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
