package service

import (
	"context"
	"io"
	"time"

	"github.com/kelurahan-digital/sisurat/internal/export"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/workflow"
)

const inboxLimit = 50

// Dashboard adalah jumlah surat per status.
type Dashboard struct {
	Counts  map[model.SuratStatus]int64 `json:"counts"`
	Total   int64                       `json:"total"`
	Pending int64                       `json:"pending"`
}

// Dashboard menghitung surat per status. Untuk warga hanya suratnya sendiri,
// untuk pemeriksa Pending adalah surat yang menunggu tahapnya.
func (s *Service) Dashboard(ctx context.Context, actor model.Actor) (*Dashboard, error) {
	var pemohon *int64
	if actor.Role == model.RoleWarga {
		pemohon = &actor.UserID
	}

	counts, err := s.repo.CountSuratByStatus(ctx, pemohon)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Counts: make(map[model.SuratStatus]int64, len(model.AllStatuses()))}
	for _, st := range model.AllStatuses() {
		d.Counts[st] = counts[st]
		d.Total += counts[st]
	}

	switch {
	case actor.Role.IsReviewer():
		for _, st := range workflow.PendingFor(actor.Role) {
			d.Pending += counts[st]
		}
	case actor.Role == model.RoleWarga:
		for st, n := range counts {
			if !st.IsTerminal() {
				d.Pending += n
			}
		}
	}
	return d, nil
}

// Inbox mengembalikan surat yang perlu diperhatikan pengguna: antrean tahap
// untuk pemeriksa, surat terbaru sendiri untuk warga.
func (s *Service) Inbox(ctx context.Context, actor model.Actor) ([]model.Surat, error) {
	f := model.SuratFilter{Limit: inboxLimit}
	switch {
	case actor.Role.IsReviewer():
		f.Statuses = workflow.PendingFor(actor.Role)
		f.Limit = 0
	case actor.Role == model.RoleWarga:
		f.PemohonID = &actor.UserID
	}
	return s.repo.ListSurat(ctx, f)
}

// ReportFilter membatasi laporan surat berdasarkan tanggal pengajuan dan status.
type ReportFilter struct {
	From     *time.Time
	To       *time.Time
	Statuses []model.SuratStatus
}

func canReport(actor model.Actor) bool {
	return actor.Role == model.RoleSuperadmin || actor.Role == model.RoleLurah
}

// ReportSurat mengembalikan surat sesuai filter laporan.
func (s *Service) ReportSurat(ctx context.Context, actor model.Actor, f ReportFilter) ([]model.Surat, error) {
	if !canReport(actor) {
		return nil, ErrForbidden
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, invalid("from", "tanggal awal harus sebelum tanggal akhir")
	}
	for _, st := range f.Statuses {
		if !st.IsValid() {
			return nil, invalid("status", "status tidak dikenal")
		}
	}
	return s.repo.ListSurat(ctx, model.SuratFilter{From: f.From, To: f.To, Statuses: f.Statuses})
}

// WriteSuratReport menulis laporan surat dalam format Excel.
func (s *Service) WriteSuratReport(ctx context.Context, actor model.Actor, f ReportFilter, w io.Writer) error {
	items, err := s.ReportSurat(ctx, actor, f)
	if err != nil {
		return err
	}
	return export.WriteSuratReport(w, items)
}

// RatingSummary mengembalikan rata-rata penilaian per tahap.
func (s *Service) RatingSummary(ctx context.Context, actor model.Actor) ([]model.RatingSummary, error) {
	if !canReport(actor) {
		return nil, ErrForbidden
	}
	return s.repo.RatingSummary(ctx)
}
