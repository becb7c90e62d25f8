package service

import (
	"context"
	"io"

	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/blob"
	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/repository"
)

// In-memory fakes shared by the service tests in this package.

type fakeFolderRepo struct {
	folders map[uuid.UUID]*model.Folder

	grantErr   error
	revokeErr  error
	deleteErr  error
	recountOut int64

	// cascade mimics the storage-level folder cascade over video rows.
	cascade *fakeVideoRepo

	granted []uuid.UUID
	revoked []uuid.UUID
	deleted []uuid.UUID
	renamed map[uuid.UUID]string
}

var _ repository.FolderRepository = (*fakeFolderRepo)(nil)

func newFakeFolderRepo(folders ...*model.Folder) *fakeFolderRepo {
	f := &fakeFolderRepo{
		folders: make(map[uuid.UUID]*model.Folder),
		renamed: make(map[uuid.UUID]string),
	}
	for _, folder := range folders {
		if folder.Permissions == nil {
			folder.Permissions = make(map[uuid.UUID]model.Permission)
		}
		f.folders[folder.ID] = folder
	}
	return f
}

func (f *fakeFolderRepo) Create(_ context.Context, folder *model.Folder) error {
	if _, ok := f.folders[folder.ID]; ok {
		return errs.ErrAlreadyExists
	}
	f.folders[folder.ID] = folder
	return nil
}

func (f *fakeFolderRepo) Get(_ context.Context, folderID uuid.UUID) (*model.Folder, error) {
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return folder, nil
}

func (f *fakeFolderRepo) Rename(_ context.Context, folderID uuid.UUID, name string) error {
	folder, ok := f.folders[folderID]
	if !ok {
		return errs.ErrNotFound
	}
	folder.Name = name
	f.renamed[folderID] = name
	return nil
}

func (f *fakeFolderRepo) GrantAccess(_ context.Context, folderID, reviewerID uuid.UUID, perm model.Permission, contact string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	folder, ok := f.folders[folderID]
	if !ok {
		return errs.ErrNotFound
	}
	if _, exists := folder.Permissions[reviewerID]; !exists {
		folder.ReviewerIDs = append(folder.ReviewerIDs, reviewerID)
	}
	folder.Permissions[reviewerID] = perm
	f.granted = append(f.granted, reviewerID)
	return nil
}

func (f *fakeFolderRepo) RevokeAccess(_ context.Context, folderID, reviewerID uuid.UUID) (string, error) {
	if f.revokeErr != nil {
		return "", f.revokeErr
	}
	folder, ok := f.folders[folderID]
	if !ok {
		return "", errs.ErrNotFound
	}
	if _, exists := folder.Permissions[reviewerID]; !exists {
		return "", errs.ErrNotFound
	}
	delete(folder.Permissions, reviewerID)
	ids := folder.ReviewerIDs[:0]
	for _, id := range folder.ReviewerIDs {
		if id != reviewerID {
			ids = append(ids, id)
		}
	}
	folder.ReviewerIDs = ids
	f.revoked = append(f.revoked, reviewerID)
	return "reviewer@example.com", nil
}

func (f *fakeFolderRepo) GetPermission(_ context.Context, folderID, reviewerID uuid.UUID) (*model.Permission, error) {
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	perm, ok := folder.Permissions[reviewerID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &perm, nil
}

func (f *fakeFolderRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Folder, error) {
	var out []model.Folder
	for _, folder := range f.folders {
		if folder.OwnerID == ownerID {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (f *fakeFolderRepo) ListByReviewer(_ context.Context, reviewerID uuid.UUID) ([]model.Folder, error) {
	var out []model.Folder
	for _, folder := range f.folders {
		if _, ok := folder.Permissions[reviewerID]; ok {
			out = append(out, *folder)
		}
	}
	return out, nil
}

func (f *fakeFolderRepo) Delete(_ context.Context, folderID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.folders[folderID]; !ok {
		return errs.ErrNotFound
	}
	delete(f.folders, folderID)
	f.deleted = append(f.deleted, folderID)
	if f.cascade != nil {
		for id, v := range f.cascade.videos {
			if v.FolderID == folderID {
				delete(f.cascade.videos, id)
			}
		}
	}
	return nil
}

func (f *fakeFolderRepo) RecountVideos(_ context.Context, folderID uuid.UUID) (int64, error) {
	if _, ok := f.folders[folderID]; !ok {
		return 0, errs.ErrNotFound
	}
	return f.recountOut, nil
}

type fakeVideoRepo struct {
	videos map[uuid.UUID]*model.Video

	createErr   error
	deleteErr   error
	orphanedOut int64

	deleted []uuid.UUID
}

var _ repository.VideoRepository = (*fakeVideoRepo)(nil)

func newFakeVideoRepo(videos ...*model.Video) *fakeVideoRepo {
	f := &fakeVideoRepo{videos: make(map[uuid.UUID]*model.Video)}
	for _, v := range videos {
		f.videos[v.ID] = v
	}
	return f
}

func (f *fakeVideoRepo) Create(_ context.Context, v *model.Video) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.videos[v.ID] = v
	return nil
}

func (f *fakeVideoRepo) Get(_ context.Context, videoID uuid.UUID) (*model.Video, error) {
	v, ok := f.videos[videoID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return v, nil
}

func (f *fakeVideoRepo) ListByFolder(_ context.Context, folderID uuid.UUID) ([]model.Video, error) {
	var out []model.Video
	for _, v := range f.videos {
		if v.FolderID == folderID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) Delete(_ context.Context, videoID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.videos[videoID]; !ok {
		return errs.ErrNotFound
	}
	delete(f.videos, videoID)
	f.deleted = append(f.deleted, videoID)
	return nil
}

func (f *fakeVideoRepo) MarkOrphanedByUploader(_ context.Context, uploaderID uuid.UUID) (int64, error) {
	var n int64
	for _, v := range f.videos {
		if v.UploadedBy == uploaderID && !v.Orphaned {
			v.Orphaned = true
			n++
		}
	}
	if f.orphanedOut != 0 {
		return f.orphanedOut, nil
	}
	return n, nil
}

type fakeAnnotationRepo struct {
	annotations map[uuid.UUID]*model.Annotation
	order       []uuid.UUID
	createErr   error
}

var _ repository.AnnotationRepository = (*fakeAnnotationRepo)(nil)

func newFakeAnnotationRepo(annotations ...*model.Annotation) *fakeAnnotationRepo {
	f := &fakeAnnotationRepo{annotations: make(map[uuid.UUID]*model.Annotation)}
	for _, a := range annotations {
		f.annotations[a.ID] = a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeAnnotationRepo) Create(_ context.Context, a *model.Annotation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.annotations[a.ID] = a
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeAnnotationRepo) Get(_ context.Context, id uuid.UUID) (*model.Annotation, error) {
	a, ok := f.annotations[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return a, nil
}

func (f *fakeAnnotationRepo) ListByVideo(_ context.Context, videoID uuid.UUID) ([]model.Annotation, error) {
	var out []model.Annotation
	for _, id := range f.order {
		a, ok := f.annotations[id]
		if ok && a.VideoID == videoID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAnnotationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.annotations[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.annotations, id)
	return nil
}

type fakeInvitationRepo struct {
	createErr error
	created   []*model.Invitation

	acceptOut       *model.Invitation
	acceptErr       error
	acceptedContact string

	declineOut *model.Invitation
	declineErr error

	listOut []model.Invitation

	deleteByOwnerOut int64
}

var _ repository.InvitationRepository = (*fakeInvitationRepo)(nil)

func (f *fakeInvitationRepo) Create(_ context.Context, inv *model.Invitation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, inv)
	return nil
}

func (f *fakeInvitationRepo) Get(_ context.Context, _ uuid.UUID) (*model.Invitation, error) {
	return nil, errs.ErrNotFound
}

func (f *fakeInvitationRepo) Accept(_ context.Context, _, _ uuid.UUID, contact string) (*model.Invitation, error) {
	f.acceptedContact = contact
	return f.acceptOut, f.acceptErr
}

func (f *fakeInvitationRepo) Decline(_ context.Context, _ uuid.UUID) (*model.Invitation, error) {
	return f.declineOut, f.declineErr
}

func (f *fakeInvitationRepo) ListPendingByContact(_ context.Context, _ string) ([]model.Invitation, error) {
	return append([]model.Invitation(nil), f.listOut...), nil
}

func (f *fakeInvitationRepo) DeleteByOwner(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.deleteByOwnerOut, nil
}

type fakeRecordRepo struct {
	createOut model.RecordVersion
	createErr error
	createIn  *model.Record

	updateOut model.RecordVersion
	updateErr error

	deleteOut model.RecordVersion

	listOut []model.Record

	changesOut []model.Change

	maxOut int64

	purgeOut int64
}

var _ repository.RecordRepository = (*fakeRecordRepo)(nil)

func (f *fakeRecordRepo) Create(_ context.Context, rec *model.Record) (model.RecordVersion, error) {
	f.createIn = rec
	return f.createOut, f.createErr
}

func (f *fakeRecordRepo) Update(_ context.Context, _, _ uuid.UUID, _ model.Payload, _ int64) (model.RecordVersion, error) {
	return f.updateOut, f.updateErr
}

func (f *fakeRecordRepo) SoftDelete(_ context.Context, _, _ uuid.UUID) (model.RecordVersion, error) {
	return f.deleteOut, nil
}

func (f *fakeRecordRepo) List(_ context.Context, _ uuid.UUID, _ model.EntityType) ([]model.Record, error) {
	return append([]model.Record(nil), f.listOut...), nil
}

func (f *fakeRecordRepo) ChangesSince(_ context.Context, _ uuid.UUID, _ int64) ([]model.Change, error) {
	return append([]model.Change(nil), f.changesOut...), nil
}

func (f *fakeRecordRepo) MaxVersion(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.maxOut, nil
}

func (f *fakeRecordRepo) Purge(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.purgeOut, nil
}

type fakeOutbox struct {
	enqueueErr error
	enqueued   []*model.Notification
}

var _ repository.NotificationRepository = (*fakeOutbox)(nil)

func (f *fakeOutbox) Enqueue(_ context.Context, n *model.Notification) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, n)
	return nil
}

func (f *fakeOutbox) ListUndelivered(_ context.Context, _ int) ([]model.Notification, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkDelivered(_ context.Context, _ uuid.UUID) error { return nil }

type fakeBlobStore struct {
	putErr    error
	deleteErr error
	putKeys   []string
	delKeys   []string
}

var _ blob.Store = (*fakeBlobStore)(nil)

func (f *fakeBlobStore) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.delKeys = append(f.delKeys, key)
	return nil
}
