package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/service"
)

const dateLayout = "2006-01-02"

// Dashboard mengembalikan jumlah surat per status.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// Notifikasi mengembalikan surat yang menunggu tindakan pengguna.
func (h *Handler) Notifikasi(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	items, err := h.service.Inbox(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "inbox", err)
		return
	}

	writeJSON(w, http.StatusOK, newSuratList(items))
}

// reportFilter membaca ?from= dan ?to= (YYYY-MM-DD, keduanya inklusif) serta ?status=.
func reportFilter(r *http.Request) (service.ReportFilter, error) {
	f := service.ReportFilter{Statuses: statusesFromQuery(r)}
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return f, &service.ValidationError{Field: "from", Message: "format tanggal harus YYYY-MM-DD"}
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return f, &service.ValidationError{Field: "to", Message: "format tanggal harus YYYY-MM-DD"}
		}
		t = t.AddDate(0, 0, 1)
		f.To = &t
	}
	return f, nil
}

// ReportSurat mengembalikan laporan surat dalam JSON.
func (h *Handler) ReportSurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	f, err := reportFilter(r)
	if err != nil {
		h.writeError(w, r, "report filter", err)
		return
	}

	items, err := h.service.ReportSurat(r.Context(), actor, f)
	if err != nil {
		h.writeError(w, r, "report surat", err)
		return
	}

	writeJSON(w, http.StatusOK, newSuratList(items))
}

// ReportSuratExcel mengunduh laporan surat dalam format Excel.
func (h *Handler) ReportSuratExcel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	f, err := reportFilter(r)
	if err != nil {
		h.writeError(w, r, "report filter", err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteSuratReport(r.Context(), actor, f, &buf); err != nil {
		h.writeError(w, r, "report surat xlsx", err)
		return
	}

	name := fmt.Sprintf("laporan-surat-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// RatingSummary mengembalikan rata-rata penilaian per tahap.
func (h *Handler) RatingSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	items, err := h.service.RatingSummary(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "rating summary", err)
		return
	}
	if items == nil {
		items = []model.RatingSummary{}
	}

	writeJSON(w, http.StatusOK, items)
}
