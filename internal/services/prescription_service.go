package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"wellnest/internal/models"
	"wellnest/internal/repositories"
	"wellnest/internal/storage"
)

// DocumentStore keeps uploaded prescription files behind opaque references.
type DocumentStore interface {
	Save(ctx context.Context, ownerID, fileName string, data []byte) (string, error)
	Read(ctx context.Context, ref string) ([]byte, error)
}

// UploadedFile is a prescription document received from the client.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// TransitionRequest moves a prescription to Status. Notes are only accepted with a decision.
type TransitionRequest struct {
	Status models.PrescriptionStatus `json:"status" validate:"required"`
	Notes  *string                   `json:"pharmacist_notes,omitempty" validate:"omitempty,max=2000"`
}

// PrescriptionService tracks uploaded prescriptions through review.
type PrescriptionService struct {
	repo   repositories.PrescriptionRepository
	docs   DocumentStore
	gate   *RoleGate
	events EventPublisher
}

// NewPrescriptionService creates a new PrescriptionService. events may be nil.
func NewPrescriptionService(repo repositories.PrescriptionRepository, docs DocumentStore, gate *RoleGate, events EventPublisher) *PrescriptionService {
	return &PrescriptionService{
		repo:   repo,
		docs:   docs,
		gate:   gate,
		events: events,
	}
}

// Submit stores the document and creates the prescription in state received.
func (s *PrescriptionService) Submit(ctx context.Context, user models.Principal, patientName string, file UploadedFile) (*models.Prescription, error) {
	if user.UserID == "" {
		return nil, ErrInvalidCredentials
	}
	patientName = strings.TrimSpace(patientName)
	if patientName == "" {
		return nil, invalid("patient name is required")
	}
	if len(patientName) > 150 {
		return nil, invalid("patient name is too long")
	}
	if len(file.Data) == 0 {
		return nil, invalid("prescription file is empty")
	}

	ref, err := s.docs.Save(ctx, user.UserID, file.Name, file.Data)
	if err != nil {
		return nil, storageError(err)
	}

	prescription := &models.Prescription{
		UserID:      user.UserID,
		PatientName: patientName,
		FileRef:     ref,
		FileName:    file.Name,
		ContentType: file.ContentType,
		Status:      models.PrescriptionReceived,
	}
	if err := s.repo.Create(ctx, prescription); err != nil {
		return nil, err
	}
	log.Printf("Prescription %s received from user %s", prescription.ID, user.UserID)
	return prescription, nil
}

// ListOwn returns the caller's prescriptions, newest first.
func (s *PrescriptionService) ListOwn(ctx context.Context, user models.Principal) ([]models.Prescription, error) {
	if err := s.gate.Require(user, ViewPrescription(user.UserID)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, repositories.PrescriptionFilter{UserID: user.UserID})
}

// Get returns a prescription to its owner or a reviewer.
func (s *PrescriptionService) Get(ctx context.Context, user models.Principal, id string) (*models.Prescription, error) {
	prescription, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Require(user, ViewPrescription(prescription.UserID)); err != nil {
		return nil, err
	}
	return prescription, nil
}

// Document returns the uploaded file of a prescription.
func (s *PrescriptionService) Document(ctx context.Context, user models.Principal, id string) (*models.Prescription, []byte, error) {
	prescription, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.docs.Read(ctx, prescription.FileRef)
	if err != nil {
		return nil, nil, storageError(err)
	}
	return prescription, data, nil
}

// ListForReview returns all prescriptions, optionally filtered by status. Reviewers only.
func (s *PrescriptionService) ListForReview(ctx context.Context, user models.Principal, status models.PrescriptionStatus) ([]models.Prescription, error) {
	if err := s.gate.Require(user, ReviewPrescription()); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	return s.repo.List(ctx, repositories.PrescriptionFilter{Status: status})
}

// Transition applies one step of the review state machine.
func (s *PrescriptionService) Transition(ctx context.Context, user models.Principal, id string, req TransitionRequest) (*models.Prescription, error) {
	if err := s.gate.Require(user, ReviewPrescription()); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, invalid("unknown status %q", req.Status)
	}
	var notes *string
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		if trimmed != "" {
			if !req.Status.IsDecision() {
				return nil, invalid("pharmacist notes can only be attached to an approval or rejection")
			}
			notes = &trimmed
		}
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, req.Status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, req.Status, notes, user.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: prescription %s", ErrConcurrentUpdate, id)
		}
		return nil, err
	}

	log.Printf("Prescription %s moved %s -> %s by %s", id, current.Status, updated.Status, user.UserID)
	publish(ctx, s.events, EventPrescriptionStatusChanged, PrescriptionStatusChangedEvent{
		PrescriptionID: updated.ID,
		UserID:         updated.UserID,
		From:           current.Status,
		To:             updated.Status,
		ReviewedBy:     user.UserID,
		ChangedAt:      time.Now(),
	})
	return updated, nil
}

func (s *PrescriptionService) load(ctx context.Context, id string) (*models.Prescription, error) {
	prescription, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: prescription %s", ErrNotFound, id)
		}
		return nil, err
	}
	return prescription, nil
}

func storageError(err error) error {
	log.Printf("Document storage error: %v", err)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
