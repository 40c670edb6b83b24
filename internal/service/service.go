// Package service berisi logika bisnis layanan SISURAT.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/export"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/validation"
)

var (
	// ErrInvalidCredentials dikembalikan jika username atau sandi salah.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden dikembalikan jika pengguna tidak berhak atas data atau operasi.
	ErrForbidden = errors.New("forbidden")
	// ErrRatingNotAllowed dikembalikan jika surat belum boleh dinilai.
	ErrRatingNotAllowed = errors.New("surat cannot be rated in its current status")
	// ErrNotIssued dikembalikan jika surat belum terbit.
	ErrNotIssued = errors.New("surat has not been issued")
)

// ValidationError menjelaskan masukan yang tidak valid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

var ruleMessages = map[string]string{
	"required": "wajib diisi",
	"nik":      "NIK harus 16 digit dan valid",
	"nokk":     "nomor KK harus 16 digit dan valid",
	"email":    "format email tidak valid",
	"oneof":    "nilai tidak dikenal",
	"min":      "nilai terlalu kecil",
	"max":      "nilai terlalu besar",
	"len":      "panjang tidak sesuai",
	"numeric":  "harus berupa angka",
	"datetime": "format tanggal harus YYYY-MM-DD",
}

func validateInput(in any) error {
	err := validation.Struct(in)
	if err == nil {
		return nil
	}

	var fe validation.FieldError
	if errors.As(err, &fe) {
		msg, ok := ruleMessages[fe.Rule]
		if !ok {
			msg = "tidak valid (" + fe.Rule + ")"
		}
		return invalid(fe.Field, msg)
	}
	return fmt.Errorf("validate input: %w", err)
}

// Repository adalah kontrak akses data yang dipakai service.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) error
	CreateWargaUser(ctx context.Context, u *model.User, w *model.Warga) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, role model.Role) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	GetWargaByUserID(ctx context.Context, userID int64) (*model.Warga, error)
	UpdateWargaProfil(ctx context.Context, u *model.User, w *model.Warga) error

	ListJenisSurat(ctx context.Context, onlyActive bool) ([]model.JenisSurat, error)
	GetJenisSurat(ctx context.Context, id int64) (*model.JenisSurat, error)
	CreateJenisSurat(ctx context.Context, j *model.JenisSurat) error
	UpdateJenisSurat(ctx context.Context, j *model.JenisSurat) error
	DeleteJenisSurat(ctx context.Context, id int64) error

	ListKartuKeluarga(ctx context.Context, q string) ([]model.KartuKeluarga, error)
	GetKartuKeluarga(ctx context.Context, id int64) (*model.KartuKeluarga, error)
	CreateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error
	UpdateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error
	DeleteKartuKeluarga(ctx context.Context, id int64) error
	ImportKartuKeluarga(ctx context.Context, items []model.KartuKeluarga) ([]string, error)

	CreateSurat(ctx context.Context, s *model.Surat) error
	GetSurat(ctx context.Context, id int64) (*model.Surat, error)
	ListSurat(ctx context.Context, f model.SuratFilter) ([]model.Surat, error)
	CountSuratByStatus(ctx context.Context, pemohonID *int64) (map[model.SuratStatus]int64, error)
	TransitionSurat(ctx context.Context, t model.Transition) (*model.Surat, error)
	ListStatusHistory(ctx context.Context, suratID int64) ([]model.StatusHistory, error)
	NextNomorSurat(ctx context.Context, year int) (int64, error)

	CreatePenilaian(ctx context.Context, p *model.Penilaian) error
	ListPenilaian(ctx context.Context, suratID int64) ([]model.Penilaian, error)
	RatingSummary(ctx context.Context) ([]model.RatingSummary, error)
}

// Service berisi logika bisnis layanan SISURAT.
type Service struct {
	repo   Repository
	head   export.LetterHead
	logger *zap.Logger
	now    func() time.Time
}

// NewService membuat service dengan repositori dan kop surat kelurahan.
func NewService(repo Repository, head export.LetterHead, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		head:   head,
		logger: logger,
		now:    time.Now,
	}
}

// Close menutup sumber daya service.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
