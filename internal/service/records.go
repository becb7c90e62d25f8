// Package service contains the business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/repository"
)

// RecordService defines operations over an owner's versioned synced records.
// This is the device-to-device sync surface: a phone and a tablet editing the
// same season resolve their race through the expected-version check, never by
// merging.
type RecordService interface {
	// Create inserts a record with a client-generated ID at the owner's next
	// sequence version.
	Create(ctx context.Context, ownerID, recordID uuid.UUID, entityType model.EntityType, payload model.Payload) (model.RecordVersion, error)
	// Update replaces the payload if expectedVer matches, else ErrStaleVersion.
	Update(ctx context.Context, ownerID, recordID uuid.UUID, payload model.Payload, expectedVer int64) (model.RecordVersion, error)
	// SoftDelete sets the tombstone flag.
	SoftDelete(ctx context.Context, ownerID, recordID uuid.UUID) (model.RecordVersion, error)
	// List returns non-deleted records of one type, creation order.
	List(ctx context.Context, ownerID uuid.UUID, entityType model.EntityType) ([]model.Record, error)
	// ChangesSince returns the delta stream for device reconciliation.
	ChangesSince(ctx context.Context, ownerID uuid.UUID, sinceVer int64) ([]model.Change, error)
	// MaxVersion returns the owner's latest version for sync bootstrap.
	MaxVersion(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type RecordServiceImpl struct {
	repo       repository.RecordRepository
	maxPayload int
}

// NewRecordService constructs RecordService with a payload size limit.
func NewRecordService(repo repository.RecordRepository, maxPayload int) *RecordServiceImpl {
	if maxPayload <= 0 {
		maxPayload = 256 * 1024
	}
	return &RecordServiceImpl{repo: repo, maxPayload: maxPayload}
}

// Create validates input and delegates to the repository.
func (s *RecordServiceImpl) Create(
	ctx context.Context, ownerID, recordID uuid.UUID, entityType model.EntityType, payload model.Payload,
) (model.RecordVersion, error) {
	if ownerID == uuid.Nil || recordID == uuid.Nil {
		return model.RecordVersion{}, errors.New("validation: empty ownerID/recordID")
	}
	if !entityType.Valid() {
		return model.RecordVersion{}, fmt.Errorf("validation: unknown entity type %q", entityType)
	}
	if err := s.checkPayload(payload); err != nil {
		return model.RecordVersion{}, err
	}
	rec := &model.Record{ID: recordID, OwnerID: ownerID, EntityType: entityType, Payload: payload}
	return s.repo.Create(ctx, rec)
}

// Update applies a payload replacement with optimistic concurrency.
func (s *RecordServiceImpl) Update(
	ctx context.Context, ownerID, recordID uuid.UUID, payload model.Payload, expectedVer int64,
) (model.RecordVersion, error) {
	if ownerID == uuid.Nil || recordID == uuid.Nil {
		return model.RecordVersion{}, errors.New("validation: empty ownerID/recordID")
	}
	if expectedVer < 1 {
		return model.RecordVersion{}, errors.New("validation: expected version below 1")
	}
	if err := s.checkPayload(payload); err != nil {
		return model.RecordVersion{}, err
	}
	return s.repo.Update(ctx, ownerID, recordID, payload, expectedVer)
}

// SoftDelete applies the tombstone (ver++).
func (s *RecordServiceImpl) SoftDelete(ctx context.Context, ownerID, recordID uuid.UUID) (model.RecordVersion, error) {
	if ownerID == uuid.Nil || recordID == uuid.Nil {
		return model.RecordVersion{}, errors.New("validation: empty ownerID/recordID")
	}
	return s.repo.SoftDelete(ctx, ownerID, recordID)
}

// List returns non-deleted records of one entity type, oldest first.
func (s *RecordServiceImpl) List(ctx context.Context, ownerID uuid.UUID, entityType model.EntityType) ([]model.Record, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	if !entityType.Valid() {
		return nil, fmt.Errorf("validation: unknown entity type %q", entityType)
	}
	return s.repo.List(ctx, ownerID, entityType)
}

// ChangesSince returns all changes with ver > sinceVer ordered by ver ASC.
func (s *RecordServiceImpl) ChangesSince(ctx context.Context, ownerID uuid.UUID, sinceVer int64) ([]model.Change, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("validation: empty ownerID")
	}
	if sinceVer < 0 {
		return nil, errors.New("validation: negative since version")
	}
	return s.repo.ChangesSince(ctx, ownerID, sinceVer)
}

// MaxVersion returns the owner's latest version.
func (s *RecordServiceImpl) MaxVersion(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if ownerID == uuid.Nil {
		return 0, errors.New("validation: empty ownerID")
	}
	return s.repo.MaxVersion(ctx, ownerID)
}

func (s *RecordServiceImpl) checkPayload(payload model.Payload) error {
	if len(payload) == 0 {
		return errors.New("validation: empty payload")
	}
	if len(payload) > s.maxPayload {
		return fmt.Errorf("validation: payload too large (%d > %d)", len(payload), s.maxPayload)
	}
	return nil
}
