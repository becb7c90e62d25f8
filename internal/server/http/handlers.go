package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/courtside/courtside/internal/model"
	"github.com/courtside/courtside/internal/service"
	"github.com/courtside/courtside/internal/signing"
)

// --- Records (device sync) ---

type recordPayload struct {
	ID         uuid.UUID       `json:"id"`
	EntityType string          `json:"entityType"`
	Payload    json.RawMessage `json:"payload"`
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req recordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	rv, err := s.records.Create(r.Context(), p.ID, req.ID, model.EntityType(req.EntityType), model.Payload(req.Payload))
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"id": rv.ID, "ver": rv.NewVer, "updatedAt": rv.UpdatedAt})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	recordID, err := uuid.FromString(chi.URLParam(r, "recordID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad record id"})
		return
	}
	var req struct {
		Payload     json.RawMessage `json:"payload"`
		ExpectedVer int64           `json:"expectedVer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	rv, err := s.records.Update(r.Context(), p.ID, recordID, model.Payload(req.Payload), req.ExpectedVer)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"id": rv.ID, "ver": rv.NewVer, "updatedAt": rv.UpdatedAt})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	recordID, err := uuid.FromString(chi.URLParam(r, "recordID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad record id"})
		return
	}
	rv, err := s.records.SoftDelete(r.Context(), p.ID, recordID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"id": rv.ID, "ver": rv.NewVer})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	records, err := s.records.List(r.Context(), p.ID, model.EntityType(r.URL.Query().Get("type")))
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	out := make([]envelope, 0, len(records))
	for i := range records {
		rec := &records[i]
		out = append(out, envelope{
			"id":         rec.ID,
			"entityType": rec.EntityType,
			"payload":    json.RawMessage(rec.Payload),
			"ver":        rec.Ver,
			"createdAt":  rec.CreatedAt,
			"updatedAt":  rec.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, envelope{"records": out})
}

func (s *Server) handleRecordChanges(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad since version"})
		return
	}
	changes, err := s.records.ChangesSince(r.Context(), p.ID, since)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	out := make([]envelope, 0, len(changes))
	for i := range changes {
		ch := &changes[i]
		e := envelope{
			"id":         ch.ID,
			"entityType": ch.EntityType,
			"ver":        ch.Ver,
			"deleted":    ch.Deleted,
			"updatedAt":  ch.UpdatedAt,
		}
		if !ch.Deleted {
			e["payload"] = json.RawMessage(ch.Payload)
		}
		out = append(out, e)
	}
	s.writeJSON(w, http.StatusOK, envelope{"changes": out})
}

func (s *Server) handleRecordMaxVersion(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	v, err := s.records.MaxVersion(r.Context(), p.ID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"maxVer": v})
}

// --- Folders & permissions ---

func folderJSON(f *model.Folder) envelope {
	perms := make(map[string]model.Permission, len(f.Permissions))
	for id, p := range f.Permissions {
		perms[id.String()] = p
	}
	return envelope{
		"id":          f.ID,
		"ownerID":     f.OwnerID,
		"name":        f.Name,
		"videoCount":  f.VideoCount,
		"permissions": perms,
		"reviewerIDs": f.ReviewerIDs,
		"createdAt":   f.CreatedAt,
		"updatedAt":   f.UpdatedAt,
	}
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	f, err := s.folders.Create(r.Context(), p.ID, req.Name)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"folder": folderJSON(f)})
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	f, err := s.folders.Get(r.Context(), p.ID, folderID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"folder": folderJSON(f)})
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	if err := s.folders.Rename(r.Context(), p.ID, folderID, req.Name); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"renamed": true})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	if err := s.folders.Delete(r.Context(), p.ID, folderID); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"deleted": true})
}

func (s *Server) handleListOwnedFolders(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folders, err := s.folders.ListForOwner(r.Context(), p.ID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"folders": foldersJSON(folders)})
}

func (s *Server) handleListSharedFolders(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folders, err := s.folders.ListForReviewer(r.Context(), p.ID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"folders": foldersJSON(folders)})
}

func foldersJSON(folders []model.Folder) []envelope {
	out := make([]envelope, 0, len(folders))
	for i := range folders {
		out = append(out, folderJSON(&folders[i]))
	}
	return out
}

func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	var req struct {
		ReviewerID uuid.UUID        `json:"reviewerID"`
		Contact    string           `json:"contact"`
		Permission model.Permission `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	if err := s.folders.Grant(r.Context(), p.ID, folderID, req.ReviewerID, req.Permission, req.Contact); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"granted": true})
}

func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	reviewerID, err := uuid.FromString(chi.URLParam(r, "reviewerID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad reviewer id"})
		return
	}
	if err := s.folders.Revoke(r.Context(), p.ID, p.Name, folderID, reviewerID); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"revoked": true})
}

func (s *Server) handleEffectivePermission(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	perm, err := s.folders.EffectivePermission(r.Context(), folderID, p.ID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"permission": perm})
}

func (s *Server) handleRecountFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	n, err := s.folders.Recount(r.Context(), p.ID, folderID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"videoCount": n})
}

// --- Invitations ---

func invitationJSON(inv *model.Invitation) envelope {
	return envelope{
		"id":              inv.ID,
		"folderID":        inv.FolderID,
		"folderName":      inv.FolderName,
		"ownerID":         inv.OwnerID,
		"ownerName":       inv.OwnerName,
		"reviewerContact": inv.ReviewerContact,
		"permission":      inv.Permission,
		"status":          inv.Status,
		"sentAt":          inv.SentAt,
		"expiresAt":       inv.ExpiresAt,
		"acceptedAt":      inv.AcceptedAt,
	}
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	var req struct {
		Contact    string            `json:"contact"`
		Permission *model.Permission `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	inv, err := s.invitations.Create(r.Context(), p.ID, p.Name, folderID, req.Contact, req.Permission)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"invitation": invitationJSON(inv)})
}

func (s *Server) handleListMyInvitations(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	invitations, err := s.invitations.ListForContact(r.Context(), p.Contact)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	out := make([]envelope, 0, len(invitations))
	for i := range invitations {
		out = append(out, invitationJSON(&invitations[i]))
	}
	s.writeJSON(w, http.StatusOK, envelope{"invitations": out})
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	invitationID, err := uuid.FromString(chi.URLParam(r, "invitationID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad invitation id"})
		return
	}
	// No request body: the granted permission was fixed by the owner at send
	// time, and the caller's identity comes from the token claims.
	inv, err := s.invitations.Accept(r.Context(), invitationID, p.ID, p.Contact)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"invitation": invitationJSON(inv)})
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}
	invitationID, err := uuid.FromString(chi.URLParam(r, "invitationID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad invitation id"})
		return
	}
	inv, err := s.invitations.Decline(r.Context(), invitationID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"invitation": invitationJSON(inv)})
}

// --- Media ---

func videoJSON(v *model.Video) envelope {
	return envelope{
		"id":             v.ID,
		"folderID":       v.FolderID,
		"fileName":       v.FileName,
		"blobKey":        v.BlobKey,
		"thumbnail":      thumbnailJSON(v.Thumbnail),
		"uploadedBy":     v.UploadedBy,
		"uploadedByName": v.UploadedByName,
		"uploadedByType": v.UploadedByType,
		"videoType":      v.VideoType,
		"isHighlight":    v.IsHighlight(),
		"fileSize":       v.FileSize,
		"duration":       v.Duration,
		"orphaned":       v.Orphaned,
		"orphanedAt":     v.OrphanedAt,
		"createdAt":      v.CreatedAt,
	}
}

func thumbnailJSON(t model.Thumbnail) envelope {
	return envelope{
		"standardKey":    t.StandardKey,
		"highQualityKey": t.HighQualityKey,
		"timestamp":      t.Timestamp,
		"width":          t.Width,
		"height":         t.Height,
	}
}

func (s *Server) handlePutVideoBinary(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	fileName := r.URL.Query().Get("fileName")
	key, err := s.media.PutVideoBinary(r.Context(), p.ID, folderID, fileName, r.Body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"blobKey": key})
}

func (s *Server) handlePutThumbnail(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	q := r.URL.Query()
	hq, _ := strconv.ParseBool(q.Get("hq"))
	key, err := s.media.PutThumbnail(r.Context(), p.ID, folderID, q.Get("fileName"), hq, r.Body, r.ContentLength)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"blobKey": key})
}

func (s *Server) handleRecordUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	var req struct {
		FileName       string   `json:"fileName"`
		BlobKey        string   `json:"blobKey"`
		ThumbStandard  string   `json:"thumbStandardKey"`
		ThumbHQ        string   `json:"thumbHighQualityKey"`
		ThumbTimestamp *float64 `json:"thumbTimestamp"`
		ThumbWidth     *int32   `json:"thumbWidth"`
		ThumbHeight    *int32   `json:"thumbHeight"`
		FileSize       int64    `json:"fileSize"`
		Duration       *float64 `json:"duration"`
		VideoType      string   `json:"videoType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	v, err := s.media.RecordUpload(r.Context(), service.RecordUploadRequest{
		FolderID:     folderID,
		UploaderID:   p.ID,
		UploaderName: p.Name,
		FileName:     req.FileName,
		BlobKey:      req.BlobKey,
		Thumbnail: model.Thumbnail{
			StandardKey:    req.ThumbStandard,
			HighQualityKey: req.ThumbHQ,
			Timestamp:      req.ThumbTimestamp,
			Width:          req.ThumbWidth,
			Height:         req.ThumbHeight,
		},
		FileSize:  req.FileSize,
		Duration:  req.Duration,
		VideoType: model.VideoType(req.VideoType),
	})
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"video": videoJSON(v)})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	videoID, err := uuid.FromString(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad video id"})
		return
	}
	v, err := s.media.Get(r.Context(), p.ID, videoID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"video": videoJSON(v)})
}

func (s *Server) handleListFolderVideos(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	folderID, err := uuid.FromString(chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad folder id"})
		return
	}
	videos, err := s.media.ListFolder(r.Context(), p.ID, folderID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	out := make([]envelope, 0, len(videos))
	for i := range videos {
		out = append(out, videoJSON(&videos[i]))
	}
	s.writeJSON(w, http.StatusOK, envelope{"videos": out})
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	videoID, err := uuid.FromString(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad video id"})
		return
	}
	if err := s.media.Delete(r.Context(), p.ID, videoID); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"deleted": true})
}

// --- Signed URLs ---

func (s *Server) handleVideoURLs(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	videoID, err := uuid.FromString(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad video id"})
		return
	}
	v, err := s.media.Get(r.Context(), p.ID, videoID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}

	urls := envelope{}
	video, err := s.broker.GetURL(r.Context(), v.BlobKey, signing.KindVideo)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	urls["video"] = signedJSON(video)
	if v.Thumbnail.StandardKey != "" {
		su, thumbErr := s.broker.GetURL(r.Context(), v.Thumbnail.StandardKey, signing.KindThumbnail)
		if thumbErr != nil {
			s.errorJSON(w, thumbErr)
			return
		}
		urls["thumbnail"] = signedJSON(su)
	}
	if v.Thumbnail.HighQualityKey != "" {
		su, thumbErr := s.broker.GetURL(r.Context(), v.Thumbnail.HighQualityKey, signing.KindThumbnail)
		if thumbErr != nil {
			s.errorJSON(w, thumbErr)
			return
		}
		urls["thumbnailHQ"] = signedJSON(su)
	}
	s.writeJSON(w, http.StatusOK, envelope{"urls": urls})
}

func (s *Server) handleBatchURLs(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}
	var req struct {
		Refs []struct {
			Key  string `json:"key"`
			Kind string `json:"kind"`
		} `json:"refs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	refs := make([]signing.Ref, 0, len(req.Refs))
	for _, ref := range req.Refs {
		refs = append(refs, signing.Ref{Key: ref.Key, Kind: signing.Kind(ref.Kind)})
	}
	resolved, err := s.broker.GetBatchURLs(r.Context(), refs)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	// Nested by kind so one key requested as both video and thumbnail keeps
	// both entries.
	out := make(map[string]map[string]envelope, 2)
	for ref, su := range resolved {
		kind := string(ref.Kind)
		if out[kind] == nil {
			out[kind] = make(map[string]envelope)
		}
		out[kind][ref.Key] = signedJSON(su)
	}
	s.writeJSON(w, http.StatusOK, envelope{"urls": out})
}

func signedJSON(su signing.SignedURL) envelope {
	return envelope{"url": su.URL, "expiresAt": su.ExpiresAt.Format(time.RFC3339)}
}

// --- Annotations ---

func annotationJSON(a *model.Annotation) envelope {
	return envelope{
		"id":               a.ID,
		"videoID":          a.VideoID,
		"authorID":         a.AuthorID,
		"authorName":       a.AuthorName,
		"timestampSeconds": a.TimestampSeconds,
		"text":             a.Text,
		"isReviewerNote":   a.IsReviewerNote,
		"createdAt":        a.CreatedAt,
	}
}

func (s *Server) handleAddAnnotation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	videoID, err := uuid.FromString(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad video id"})
		return
	}
	var req struct {
		TimestampSeconds float64 `json:"timestampSeconds"`
		Text             string  `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad body"})
		return
	}
	a, err := s.annotations.Add(r.Context(), p.ID, p.Name, videoID, req.TimestampSeconds, req.Text)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"annotation": annotationJSON(a)})
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	videoID, err := uuid.FromString(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad video id"})
		return
	}
	annotations, err := s.annotations.List(r.Context(), p.ID, videoID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	out := make([]envelope, 0, len(annotations))
	for i := range annotations {
		out = append(out, annotationJSON(&annotations[i]))
	}
	s.writeJSON(w, http.StatusOK, envelope{"annotations": out})
}

func (s *Server) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	annotationID, err := uuid.FromString(chi.URLParam(r, "annotationID"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"error": "bad annotation id"})
		return
	}
	if err := s.annotations.Remove(r.Context(), p.ID, annotationID); err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"removed": true})
}

// --- Account ---

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	report, err := s.account.DeleteAccount(r.Context(), p.ID)
	if err != nil {
		s.errorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"foldersDeleted":  report.FoldersDeleted,
		"videosDeleted":   report.VideosDeleted,
		"recordsPurged":   report.RecordsPurged,
		"invitationsGone": report.InvitationsGone,
		"grantsRevoked":   report.GrantsRevoked,
		"videosOrphaned":  report.VideosOrphaned,
	})
}
