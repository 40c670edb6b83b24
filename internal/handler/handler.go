// Package handler berisi HTTP handler API layanan SISURAT.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/middleware"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/repository"
	"github.com/kelurahan-digital/sisurat/internal/service"
	"github.com/kelurahan-digital/sisurat/internal/workflow"
)

// Service adalah kontrak logika bisnis yang dipakai handler.
type Service interface {
	RegisterWarga(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	CurrentUser(ctx context.Context, actor model.Actor) (*model.User, error)

	SubmitSurat(ctx context.Context, actor model.Actor, in service.SubmitInput) (*model.Surat, error)
	GetSurat(ctx context.Context, actor model.Actor, id int64) (*model.Surat, error)
	ListSurat(ctx context.Context, actor model.Actor, statuses []model.SuratStatus) ([]model.Surat, error)
	History(ctx context.Context, actor model.Actor, id int64) ([]model.StatusHistory, error)
	VerifySurat(ctx context.Context, actor model.Actor, id int64, in service.VerifyInput) (*model.Surat, error)
	WriteSuratPDF(ctx context.Context, actor model.Actor, id int64, w io.Writer) error

	SubmitPenilaian(ctx context.Context, actor model.Actor, in service.PenilaianInput) (*model.Penilaian, error)
	ListPenilaian(ctx context.Context, actor model.Actor, suratID int64) ([]model.Penilaian, error)

	ListUsers(ctx context.Context, role model.Role) ([]model.User, error)
	CreateUser(ctx context.Context, in service.UserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, in service.UserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor model.Actor, id int64) error

	ListJenisSurat(ctx context.Context, onlyActive bool) ([]model.JenisSurat, error)
	CreateJenisSurat(ctx context.Context, in service.JenisSuratInput) (*model.JenisSurat, error)
	UpdateJenisSurat(ctx context.Context, id int64, in service.JenisSuratInput) (*model.JenisSurat, error)
	DeleteJenisSurat(ctx context.Context, id int64) error

	ListKartuKeluarga(ctx context.Context, q string) ([]model.KartuKeluarga, error)
	GetKartuKeluarga(ctx context.Context, id int64) (*model.KartuKeluarga, error)
	CreateKartuKeluarga(ctx context.Context, in service.KKInput) (*model.KartuKeluarga, error)
	UpdateKartuKeluarga(ctx context.Context, id int64, in service.KKInput) (*model.KartuKeluarga, error)
	DeleteKartuKeluarga(ctx context.Context, id int64) error
	ImportKartuKeluarga(ctx context.Context, r io.Reader) (*service.ImportResult, error)
	WriteKKTemplate(w io.Writer) error

	GetProfil(ctx context.Context, actor model.Actor) (*service.Profil, error)
	UpdateProfil(ctx context.Context, actor model.Actor, in service.ProfilInput) (*service.Profil, error)

	Dashboard(ctx context.Context, actor model.Actor) (*service.Dashboard, error)
	Inbox(ctx context.Context, actor model.Actor) ([]model.Surat, error)
	ReportSurat(ctx context.Context, actor model.Actor, f service.ReportFilter) ([]model.Surat, error)
	WriteSuratReport(ctx context.Context, actor model.Actor, f service.ReportFilter, w io.Writer) error
	RatingSummary(ctx context.Context, actor model.Actor) ([]model.RatingSummary, error)
}

// Handler melayani API HTTP SISURAT.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.Auth
}

// NewHandler membuat handler HTTP baru.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.Auth) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError menerjemahkan galat layanan ke status HTTP. Galat yang tidak
// dikenal dicatat dan dibalas dengan pesan umum.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, workflow.ErrInvalidTarget):
		writeMessage(w, http.StatusBadRequest, "status tujuan tidak diizinkan untuk peran ini")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "username atau sandi salah")
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "akses ditolak")
	case errors.Is(err, repository.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "data tidak ditemukan")
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, repository.ErrStatusConflict):
		writeMessage(w, http.StatusConflict, "status surat tidak mengizinkan perubahan ini")
	case errors.Is(err, repository.ErrDuplicateRating):
		writeMessage(w, http.StatusConflict, "tahap ini sudah dinilai")
	case errors.Is(err, service.ErrRatingNotAllowed):
		writeMessage(w, http.StatusConflict, "surat belum dapat dinilai")
	case errors.Is(err, service.ErrNotIssued):
		writeMessage(w, http.StatusConflict, "surat belum terbit")
	case errors.Is(err, repository.ErrDuplicate):
		writeMessage(w, http.StatusConflict, "data sudah terdaftar")
	case errors.Is(err, repository.ErrInUse):
		writeMessage(w, http.StatusConflict, "data masih digunakan")
	default:
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "body JSON tidak valid")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "id tidak valid")
		return 0, false
	}
	return id, true
}

func actorFrom(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "autentikasi diperlukan")
		return model.Actor{}, false
	}
	return actor, true
}
