package models

import "time"

// UserReport blocks in both directions: neither side sees or notifies the other.
type UserReport struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ReporterID uint      `json:"reporter_id" gorm:"not null;uniqueIndex:idx_user_report"`
	ReportedID uint      `json:"reported_id" gorm:"not null;uniqueIndex:idx_user_report;index"`
	Reason     string    `json:"reason" gorm:"size:200"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContentReport hides one piece of content from the reporter.
type ContentReport struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ReporterID uint      `json:"reporter_id" gorm:"not null;uniqueIndex:idx_content_report"`
	Kind       Kind      `json:"kind" gorm:"size:20;not null;uniqueIndex:idx_content_report"`
	ContentID  uint      `json:"content_id" gorm:"not null;uniqueIndex:idx_content_report"`
	Reason     string    `json:"reason" gorm:"size:200"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *ContentReport) ContentRef() Ref { return Ref{Kind: r.Kind, ID: r.ContentID} }

type ReportUserRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type ReportContentRequest struct {
	Kind      Kind   `json:"kind" validate:"required,oneof=response note moment check_in comment"`
	ContentID uint   `json:"content_id" validate:"required"`
	Reason    string `json:"reason" validate:"max=200"`
}
