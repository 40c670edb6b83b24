package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/export"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/notify"
	"github.com/kelurahan-digital/sisurat/internal/repository"
	"github.com/kelurahan-digital/sisurat/internal/validation"
	"github.com/kelurahan-digital/sisurat/internal/workflow"
)

// SubmitInput adalah data pengajuan surat. Identitas pemohon yang kosong
// diisi dari profil warga.
type SubmitInput struct {
	JenisSuratID  int64  `json:"idJenisSurat"`
	Keperluan     string `json:"keperluan"`
	NamaPemohon   string `json:"namaPemohon"`
	NIKPemohon    string `json:"nikPemohon"`
	AlamatPemohon string `json:"alamatPemohon"`
}

// VerifyInput adalah keputusan pemeriksa atas sebuah surat.
type VerifyInput struct {
	Status           string  `json:"status"`
	CatatanPenolakan *string `json:"catatanPenolakan"`
	NoSurat          *string `json:"noSurat"`
}

var romanMonths = [...]string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

// FormatNomorSurat menyusun nomor surat NNN/KODE/BULAN-ROMAWI/TAHUN.
func FormatNomorSurat(seq int64, kode string, t time.Time) string {
	return fmt.Sprintf("%03d/%s/%s/%d", seq, kode, romanMonths[t.Month()-1], t.Year())
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// SubmitSurat membuat pengajuan surat baru berstatus SUBMITTED.
func (s *Service) SubmitSurat(ctx context.Context, actor model.Actor, in SubmitInput) (*model.Surat, error) {
	if actor.Role != model.RoleWarga {
		return nil, ErrForbidden
	}

	w, err := s.repo.GetWargaByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if w != nil {
		if strings.TrimSpace(in.NamaPemohon) == "" {
			in.NamaPemohon = w.NamaLengkap
		}
		if strings.TrimSpace(in.NIKPemohon) == "" {
			in.NIKPemohon = w.NIK
		}
		if strings.TrimSpace(in.AlamatPemohon) == "" {
			in.AlamatPemohon = w.Alamat
		}
	}

	sur := &model.Surat{
		JenisSuratID:     in.JenisSuratID,
		PemohonID:        actor.UserID,
		NamaPemohon:      strings.TrimSpace(in.NamaPemohon),
		NIKPemohon:       strings.TrimSpace(in.NIKPemohon),
		AlamatPemohon:    strings.TrimSpace(in.AlamatPemohon),
		Keperluan:        strings.TrimSpace(in.Keperluan),
		Status:           model.StatusSubmitted,
		TanggalPengajuan: s.now(),
	}

	switch {
	case sur.JenisSuratID <= 0:
		return nil, invalid("idJenisSurat", "wajib diisi")
	case sur.NamaPemohon == "":
		return nil, invalid("namaPemohon", "wajib diisi")
	case !validation.IsValidNIK(sur.NIKPemohon):
		return nil, invalid("nikPemohon", "NIK harus 16 digit dan valid")
	case sur.AlamatPemohon == "":
		return nil, invalid("alamatPemohon", "wajib diisi")
	case sur.Keperluan == "":
		return nil, invalid("keperluan", "wajib diisi")
	}

	jenis, err := s.repo.GetJenisSurat(ctx, sur.JenisSuratID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("idJenisSurat", "jenis surat tidak ditemukan")
		}
		return nil, err
	}
	if !jenis.Aktif {
		return nil, invalid("idJenisSurat", "jenis surat tidak aktif")
	}

	if err := s.repo.CreateSurat(ctx, sur); err != nil {
		return nil, err
	}
	sur.JenisSuratKode = jenis.Kode
	sur.JenisSuratNama = jenis.Nama

	s.logger.Info("surat submitted", zap.Int64("surat_id", sur.ID), zap.Int64("user_id", actor.UserID))
	return sur, nil
}

// canView melaporkan apakah actor boleh melihat surat sur.
func canView(actor model.Actor, sur *model.Surat) bool {
	if actor.Role == model.RoleWarga {
		return sur.PemohonID == actor.UserID
	}
	return actor.Role.IsValid()
}

// GetSurat mengembalikan surat. Warga hanya dapat melihat suratnya sendiri.
func (s *Service) GetSurat(ctx context.Context, actor model.Actor, id int64) (*model.Surat, error) {
	sur, err := s.repo.GetSurat(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, sur) {
		return nil, ErrForbidden
	}
	return sur, nil
}

// ListSurat mengembalikan daftar surat. Warga hanya melihat suratnya sendiri.
func (s *Service) ListSurat(ctx context.Context, actor model.Actor, statuses []model.SuratStatus) ([]model.Surat, error) {
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, invalid("status", fmt.Sprintf("status %q tidak dikenal", st))
		}
	}

	f := model.SuratFilter{Statuses: statuses}
	if actor.Role == model.RoleWarga {
		f.PemohonID = &actor.UserID
	}
	return s.repo.ListSurat(ctx, f)
}

// History mengembalikan riwayat status surat.
func (s *Service) History(ctx context.Context, actor model.Actor, id int64) ([]model.StatusHistory, error) {
	if _, err := s.GetSurat(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListStatusHistory(ctx, id)
}

// VerifySurat menerapkan keputusan pemeriksa pada surat. Transisi ditentukan
// oleh tabel alur; status yang berubah bersamaan menghasilkan konflik.
func (s *Service) VerifySurat(ctx context.Context, actor model.Actor, id int64, in VerifyInput) (*model.Surat, error) {
	if !actor.Role.IsReviewer() {
		return nil, ErrForbidden
	}

	target := model.SuratStatus(strings.TrimSpace(in.Status))
	if !target.IsValid() {
		return nil, invalid("status", "status tidak dikenal")
	}

	sur, err := s.repo.GetSurat(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, err := workflow.Resolve(sur.Status, actor.Role, target)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := model.Transition{
		SuratID: sur.ID,
		From:    sur.Status,
		To:      tr.To,
		Role:    actor.Role,
		ActorID: actor.UserID,
		At:      now,
	}

	if tr.Action == workflow.ActionReject {
		if note := trimmed(in.CatatanPenolakan); note != "" {
			t.Catatan = &note
		}
	}

	if actor.Role == model.RoleStaff && tr.Action == workflow.ActionApprove {
		no := trimmed(in.NoSurat)
		if no == "" {
			seq, err := s.repo.NextNomorSurat(ctx, now.Year())
			if err != nil {
				return nil, err
			}
			no = FormatNomorSurat(seq, sur.JenisSuratKode, now)
		}
		t.NoSurat = &no
	}

	t.Notifications = s.statusNotifications(ctx, sur, t)

	updated, err := s.repo.TransitionSurat(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info("surat status changed",
		zap.Int64("surat_id", sur.ID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int64("actor_id", actor.UserID),
	)
	return updated, nil
}

// statusNotifications menyusun pesan untuk pemohon. Kegagalan menyusun pesan
// hanya dicatat dan tidak menggagalkan transisi.
func (s *Service) statusNotifications(ctx context.Context, sur *model.Surat, t model.Transition) []model.Notification {
	u, err := s.repo.GetUserByID(ctx, sur.PemohonID)
	if err != nil {
		s.logger.Warn("load pemohon for notification", zap.Int64("surat_id", sur.ID), zap.Error(err))
		return nil
	}

	data := notify.StatusData{
		NamaPemohon: sur.NamaPemohon,
		SuratID:     sur.ID,
		JenisSurat:  sur.JenisSuratNama,
		Status:      t.To,
		Kelurahan:   s.head.Nama,
	}
	if t.NoSurat != nil {
		data.NoSurat = *t.NoSurat
	} else if sur.NoSurat != nil {
		data.NoSurat = *sur.NoSurat
	}
	if t.Catatan != nil {
		data.Catatan = *t.Catatan
	}

	var out []model.Notification
	add := func(ch model.NotificationChannel, recipient string, render func(notify.StatusData) (notify.Message, error)) {
		if recipient == "" {
			return
		}
		msg, err := render(data)
		if err != nil {
			s.logger.Warn("render notification", zap.String("channel", string(ch)), zap.Error(err))
			return
		}
		out = append(out, model.Notification{
			SuratID:       &sur.ID,
			UserID:        u.ID,
			Channel:       ch,
			Recipient:     recipient,
			Subject:       msg.Subject,
			Body:          msg.Body,
			Status:        model.NotificationPending,
			NextAttemptAt: t.At,
		})
	}
	add(model.ChannelEmail, strings.TrimSpace(u.Email), notify.RenderStatusEmail)
	add(model.ChannelWhatsApp, notify.NormalizePhone(u.NoHP), notify.RenderStatusWhatsApp)
	return out
}

// WriteSuratPDF mencetak surat yang sudah terbit. RT tidak berhak mencetak.
func (s *Service) WriteSuratPDF(ctx context.Context, actor model.Actor, id int64, w io.Writer) error {
	if actor.Role == model.RoleRT {
		return ErrForbidden
	}
	sur, err := s.GetSurat(ctx, actor, id)
	if err != nil {
		return err
	}
	if sur.Status != model.StatusIssued {
		return ErrNotIssued
	}
	return export.WriteSuratPDF(w, sur, s.head)
}
