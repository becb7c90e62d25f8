// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// EntityType names a synced record family. The store treats the payload as opaque;
// the type only partitions listings.
type EntityType string

// Synced entity families owned by a single principal.
const (
	EntityAthlete  EntityType = "athlete"
	EntitySeason   EntityType = "season"
	EntityGame     EntityType = "game"
	EntityPractice EntityType = "practice"
)

// Valid reports whether t is one of the known entity families.
func (t EntityType) Valid() bool {
	switch t {
	case EntityAthlete, EntitySeason, EntityGame, EntityPractice:
		return true
	}
	return false
}

// Payload is an opaque JSON document supplied by the client. The record store
// never inspects it.
type Payload []byte

// Record is a single synced entity with versioning metadata.
type Record struct {
	ID         uuid.UUID // client-generated stable PK
	OwnerID    uuid.UUID
	EntityType EntityType
	Payload    Payload
	Ver        int64 // monotonically increasing, >= 1
	Deleted    bool  // tombstone flag
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecordVersion reports the new version after a successful mutation.
type RecordVersion struct {
	ID        uuid.UUID
	NewVer    int64
	UpdatedAt time.Time
}

// Change describes a single record mutation for delta sync between an owner's devices.
type Change struct {
	ID         uuid.UUID
	EntityType EntityType
	Ver        int64
	Deleted    bool
	UpdatedAt  time.Time
	Payload    Payload // nil when Deleted
}

// Permission is the per-(folder, reviewer) capability set. Absence of an entry
// means no access.
type Permission struct {
	CanUpload  bool `json:"canUpload"`
	CanComment bool `json:"canComment"`
	CanDelete  bool `json:"canDelete"`
}

// Folder is a shareable container of videos with a per-reviewer permission map.
// ReviewerIDs always equals the key set of Permissions; both views are built from
// the same permission rows.
type Folder struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Permissions map[uuid.UUID]Permission
	ReviewerIDs []uuid.UUID
	VideoCount  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvitationStatus is the invitation state machine value.
type InvitationStatus string

// Invitation states. Accepted and Declined are terminal.
const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation bridges an owner's folder to a reviewer known only by contact address
// until they authenticate. Folder and owner names are denormalized on purpose so the
// invitation stays renderable after either account changes or disappears.
// Permission is fixed by the owner when the invitation is sent; accepting grants
// exactly that set, never anything the acceptor asks for.
type Invitation struct {
	ID              uuid.UUID
	FolderID        uuid.UUID
	FolderName      string
	OwnerID         uuid.UUID
	OwnerName       string
	ReviewerContact string
	Permission      Permission
	Status          InvitationStatus
	SentAt          time.Time
	ExpiresAt       time.Time
	AcceptedAt      *time.Time
}

// PrincipalType distinguishes the two roles a video uploader can hold.
type PrincipalType string

// Uploader roles.
const (
	PrincipalOwner    PrincipalType = "owner"
	PrincipalReviewer PrincipalType = "reviewer"
)

// VideoType classifies a recording.
type VideoType string

// Video classifications. Highlight is the only type carrying a high-quality thumbnail.
const (
	VideoGame      VideoType = "game"
	VideoPractice  VideoType = "practice"
	VideoHighlight VideoType = "highlight"
)

// Valid reports whether t is a known video classification.
func (t VideoType) Valid() bool {
	switch t {
	case VideoGame, VideoPractice, VideoHighlight:
		return true
	}
	return false
}

// Thumbnail holds the blob references for a video's preview variants. HighQualityKey
// is only set for highlight videos.
type Thumbnail struct {
	StandardKey    string
	HighQualityKey string
	Timestamp      *float64
	Width          *int32
	Height         *int32
}

// Video is immutable metadata for an uploaded recording. Only the orphan flag
// transitions after creation.
type Video struct {
	ID             uuid.UUID
	FolderID       uuid.UUID
	FileName       string
	BlobKey        string
	Thumbnail      Thumbnail
	UploadedBy     uuid.UUID
	UploadedByName string
	UploadedByType PrincipalType
	VideoType      VideoType
	FileSize       int64
	Duration       *float64
	Orphaned       bool
	OrphanedAt     *time.Time
	CreatedAt      time.Time
}

// IsHighlight is derived from VideoType, never stored independently.
func (v *Video) IsHighlight() bool { return v.VideoType == VideoHighlight }

// Annotation is a timestamped comment on a video. Retrieval order is always by
// TimestampSeconds ascending, not creation time.
type Annotation struct {
	ID               uuid.UUID
	VideoID          uuid.UUID
	AuthorID         uuid.UUID
	AuthorName       string
	TimestampSeconds float64
	Text             string
	IsReviewerNote   bool
	CreatedAt        time.Time
}

// NotificationKind names an outbox event family.
type NotificationKind string

// Outbox event kinds consumed by the external notification collaborator.
const (
	NotifyAccessRevoked      NotificationKind = "access_revoked"
	NotifyInvitationAccepted NotificationKind = "invitation_accepted"
	NotifyInvitationDeclined NotificationKind = "invitation_declined"
)

// Notification is a denormalized outbox row. It carries enough context to compose
// an out-of-band message without joining back to accounts that may no longer exist.
type Notification struct {
	ID              uuid.UUID
	Kind            NotificationKind
	FolderID        uuid.UUID
	FolderName      string
	OwnerID         uuid.UUID
	OwnerName       string
	ReviewerID      uuid.UUID
	ReviewerContact string
	CreatedAt       time.Time
}
