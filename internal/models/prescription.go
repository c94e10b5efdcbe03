package models

import "time"

// PrescriptionStatus is the review state of an uploaded prescription.
// It is deliberately a separate type from OrderStatus.
type PrescriptionStatus string

const (
	PrescriptionReceived    PrescriptionStatus = "received"
	PrescriptionUnderReview PrescriptionStatus = "under-review"
	PrescriptionApproved    PrescriptionStatus = "approved"
	PrescriptionRejected    PrescriptionStatus = "rejected"
	PrescriptionDelivered   PrescriptionStatus = "delivered"
)

var prescriptionTransitions = map[PrescriptionStatus][]PrescriptionStatus{
	PrescriptionReceived:    {PrescriptionUnderReview},
	PrescriptionUnderReview: {PrescriptionApproved, PrescriptionRejected},
	PrescriptionApproved:    {PrescriptionDelivered},
}

// Valid reports whether s is a known status.
func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionReceived, PrescriptionUnderReview, PrescriptionApproved, PrescriptionRejected, PrescriptionDelivered:
		return true
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s PrescriptionStatus) Terminal() bool {
	return len(prescriptionTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s PrescriptionStatus) CanTransitionTo(next PrescriptionStatus) bool {
	for _, allowed := range prescriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDecision reports whether s is the outcome of a review.
func (s PrescriptionStatus) IsDecision() bool {
	return s == PrescriptionApproved || s == PrescriptionRejected
}

// Prescription is an uploaded prescription document and its review state.
type Prescription struct {
	ID              string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string             `json:"user_id" gorm:"index;type:varchar(36)"`
	PatientName     string             `json:"patient_name" gorm:"type:varchar(150)"`
	FileRef         string             `json:"file_ref"`
	FileName        string             `json:"file_name"`
	ContentType     string             `json:"content_type,omitempty" gorm:"type:varchar(100)"`
	Status          PrescriptionStatus `json:"status" gorm:"index;type:varchar(16)"`
	PharmacistNotes *string            `json:"pharmacist_notes,omitempty"`
	ReviewedBy      *string            `json:"reviewed_by,omitempty" gorm:"type:varchar(36)"`
	CreatedAt       time.Time          `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
