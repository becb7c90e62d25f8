package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/courtside/courtside/internal/errs"
	"github.com/courtside/courtside/internal/service"
	"github.com/courtside/courtside/internal/signing"
)

// Server wires the services into HTTP handlers.
type Server struct {
	records     service.RecordService
	folders     service.FolderService
	invitations service.InvitationService
	media       service.MediaService
	annotations service.AnnotationService
	account     service.AccountService
	broker      *signing.Broker
	log         *zap.Logger
}

// New constructs a server with injected services.
func New(
	records service.RecordService,
	folders service.FolderService,
	invitations service.InvitationService,
	media service.MediaService,
	annotations service.AnnotationService,
	account service.AccountService,
	broker *signing.Broker,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		records:     records,
		folders:     folders,
		invitations: invitations,
		media:       media,
		annotations: annotations,
		account:     account,
		broker:      broker,
		log:         log,
	}
}

// Routes builds the router with middleware and every API route.
func (s *Server) Routes(signKey []byte, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(signKey))

		r.Route("/records", func(r chi.Router) {
			r.Post("/", s.handleCreateRecord)
			r.Get("/", s.handleListRecords)
			r.Get("/changes", s.handleRecordChanges)
			r.Get("/version", s.handleRecordMaxVersion)
			r.Put("/{recordID}", s.handleUpdateRecord)
			r.Delete("/{recordID}", s.handleDeleteRecord)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", s.handleCreateFolder)
			r.Get("/", s.handleListOwnedFolders)
			r.Get("/shared", s.handleListSharedFolders)
			r.Route("/{folderID}", func(r chi.Router) {
				r.Get("/", s.handleGetFolder)
				r.Patch("/", s.handleRenameFolder)
				r.Delete("/", s.handleDeleteFolder)
				r.Post("/recount", s.handleRecountFolder)
				r.Get("/permission", s.handleEffectivePermission)
				r.Post("/permissions", s.handleGrantAccess)
				r.Delete("/permissions/{reviewerID}", s.handleRevokeAccess)
				r.Post("/invitations", s.handleCreateInvitation)
				r.Post("/videos", s.handleRecordUpload)
				r.Get("/videos", s.handleListFolderVideos)
				r.Put("/videos/binary", s.handlePutVideoBinary)
				r.Put("/videos/thumbnail", s.handlePutThumbnail)
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", s.handleListMyInvitations)
			r.Post("/{invitationID}/accept", s.handleAcceptInvitation)
			r.Post("/{invitationID}/decline", s.handleDeclineInvitation)
		})

		r.Route("/videos/{videoID}", func(r chi.Router) {
			r.Get("/", s.handleGetVideo)
			r.Delete("/", s.handleDeleteVideo)
			r.Get("/urls", s.handleVideoURLs)
			r.Post("/annotations", s.handleAddAnnotation)
			r.Get("/annotations", s.handleListAnnotations)
		})

		r.Delete("/annotations/{annotationID}", s.handleRemoveAnnotation)
		r.Post("/urls/batch", s.handleBatchURLs)
		r.Delete("/account", s.handleDeleteAccount)
	})

	return r
}

type envelope map[string]any

func (s *Server) writeJSON(w http.ResponseWriter, status int, data envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) errorJSON(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), envelope{"error": err.Error()})
}

// statusFor maps sentinel errors to HTTP status codes. Validation errors from
// the service layer carry a "validation:" prefix and map to 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrStaleVersion):
		return http.StatusConflict
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrExpired):
		return http.StatusGone
	case errors.Is(err, errs.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case strings.HasPrefix(err.Error(), "validation:"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) principal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := PrincipalFromCtx(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return p, ok
}
