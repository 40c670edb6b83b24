package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/workflow"
)

// PenilaianInput adalah penilaian kepuasan warga atas satu tahap pemeriksaan.
type PenilaianInput struct {
	SuratID   int64   `json:"idSurat" validate:"required"`
	TahapRole string  `json:"tahapRole" validate:"required,oneof=RT STAFF LURAH"`
	Rating    int     `json:"rating" validate:"min=1,max=5"`
	Deskripsi *string `json:"deskripsi"`
}

// SubmitPenilaian menyimpan penilaian pemohon untuk satu tahap. Setiap tahap
// hanya dapat dinilai sekali.
func (s *Service) SubmitPenilaian(ctx context.Context, actor model.Actor, in PenilaianInput) (*model.Penilaian, error) {
	if actor.Role != model.RoleWarga {
		return nil, ErrForbidden
	}
	in.TahapRole = strings.ToUpper(strings.TrimSpace(in.TahapRole))
	if err := validateInput(in); err != nil {
		return nil, err
	}

	sur, err := s.repo.GetSurat(ctx, in.SuratID)
	if err != nil {
		return nil, err
	}
	if sur.PemohonID != actor.UserID {
		return nil, ErrForbidden
	}
	if !workflow.CanRate(sur.Status) {
		return nil, ErrRatingNotAllowed
	}

	var desc *string
	if d := trimmed(in.Deskripsi); d != "" {
		desc = &d
	}

	p := &model.Penilaian{
		SuratID:   sur.ID,
		TahapRole: model.Role(in.TahapRole),
		Rating:    in.Rating,
		Deskripsi: desc,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreatePenilaian(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("penilaian created",
		zap.Int64("surat_id", sur.ID), zap.String("tahap", in.TahapRole), zap.Int("rating", in.Rating))
	return p, nil
}

// ListPenilaian mengembalikan penilaian sebuah surat.
func (s *Service) ListPenilaian(ctx context.Context, actor model.Actor, suratID int64) ([]model.Penilaian, error) {
	if _, err := s.GetSurat(ctx, actor, suratID); err != nil {
		return nil, err
	}
	return s.repo.ListPenilaian(ctx, suratID)
}
