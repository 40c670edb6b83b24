package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/service"
)

type suratResponse struct {
	ID               int64              `json:"id"`
	NoSurat          *string            `json:"noSurat"`
	JenisSuratID     int64              `json:"idJenisSurat"`
	JenisSuratKode   string             `json:"kodeJenisSurat"`
	JenisSuratNama   string             `json:"namaJenisSurat"`
	PemohonID        int64              `json:"idPemohon"`
	NamaPemohon      string             `json:"namaPemohon"`
	NIKPemohon       string             `json:"nikPemohon"`
	AlamatPemohon    string             `json:"alamatPemohon"`
	Keperluan        string             `json:"keperluan"`
	Status           model.SuratStatus  `json:"status"`
	CatatanPenolakan *string            `json:"catatanPenolakan,omitempty"`
	TanggalPengajuan time.Time          `json:"tanggalPengajuan"`
	Verifikasi       verifikasiResponse `json:"verifikasi"`
	IssuedAt         *time.Time         `json:"issuedAt,omitempty"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

type verifikasiResponse struct {
	RTBy    *int64     `json:"rtBy,omitempty"`
	RTAt    *time.Time `json:"rtAt,omitempty"`
	StaffBy *int64     `json:"staffBy,omitempty"`
	StaffAt *time.Time `json:"staffAt,omitempty"`
	LurahBy *int64     `json:"lurahBy,omitempty"`
	LurahAt *time.Time `json:"lurahAt,omitempty"`
}

func newSuratResponse(s *model.Surat) suratResponse {
	return suratResponse{
		ID:               s.ID,
		NoSurat:          s.NoSurat,
		JenisSuratID:     s.JenisSuratID,
		JenisSuratKode:   s.JenisSuratKode,
		JenisSuratNama:   s.JenisSuratNama,
		PemohonID:        s.PemohonID,
		NamaPemohon:      s.NamaPemohon,
		NIKPemohon:       s.NIKPemohon,
		AlamatPemohon:    s.AlamatPemohon,
		Keperluan:        s.Keperluan,
		Status:           s.Status,
		CatatanPenolakan: s.CatatanPenolakan,
		TanggalPengajuan: s.TanggalPengajuan,
		Verifikasi: verifikasiResponse{
			RTBy:    s.RTVerifiedBy,
			RTAt:    s.RTVerifiedAt,
			StaffBy: s.StaffVerifiedBy,
			StaffAt: s.StaffVerifiedAt,
			LurahBy: s.LurahVerifiedBy,
			LurahAt: s.LurahVerifiedAt,
		},
		IssuedAt:  s.IssuedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func newSuratList(items []model.Surat) []suratResponse {
	resp := make([]suratResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newSuratResponse(&items[i]))
	}
	return resp
}

// statusesFromQuery membaca parameter status, berulang atau dipisah koma.
func statusesFromQuery(r *http.Request) []model.SuratStatus {
	var res []model.SuratStatus
	for _, v := range r.URL.Query()["status"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				res = append(res, model.SuratStatus(strings.ToUpper(part)))
			}
		}
	}
	return res
}

// SubmitSurat menerima pengajuan surat dari warga.
func (h *Handler) SubmitSurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req service.SubmitInput
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.service.SubmitSurat(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, "submit surat", err)
		return
	}

	writeJSON(w, http.StatusCreated, newSuratResponse(s))
}

// ListSurat mengembalikan daftar surat yang boleh dilihat pengguna.
func (h *Handler) ListSurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListSurat(r.Context(), actor, statusesFromQuery(r))
	if err != nil {
		h.writeError(w, r, "list surat", err)
		return
	}

	writeJSON(w, http.StatusOK, newSuratList(items))
}

// GetSurat mengembalikan satu surat.
func (h *Handler) GetSurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s, err := h.service.GetSurat(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, "get surat", err)
		return
	}

	writeJSON(w, http.StatusOK, newSuratResponse(s))
}

// History mengembalikan riwayat status surat.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	items, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, "surat history", err)
		return
	}
	if items == nil {
		items = []model.StatusHistory{}
	}

	writeJSON(w, http.StatusOK, items)
}

// VerifySurat menerapkan keputusan RT, STAFF, atau LURAH. Peran diambil dari
// token, rute hanya membatasi siapa yang boleh masuk.
func (h *Handler) VerifySurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.VerifyInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "wajib diisi", Field: "status"})
		return
	}

	s, err := h.service.VerifySurat(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, "verify surat", err)
		return
	}

	writeJSON(w, http.StatusOK, newSuratResponse(s))
}

// SuratPDF mengunduh surat yang sudah terbit.
func (h *Handler) SuratPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteSuratPDF(r.Context(), actor, id, &buf); err != nil {
		h.writeError(w, r, "surat pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="surat-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// SubmitPenilaian menyimpan penilaian warga untuk satu tahap.
func (h *Handler) SubmitPenilaian(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req service.PenilaianInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.SubmitPenilaian(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, "submit penilaian", err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ListPenilaian mengembalikan penilaian sebuah surat.
func (h *Handler) ListPenilaian(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListPenilaian(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, "list penilaian", err)
		return
	}
	if items == nil {
		items = []model.Penilaian{}
	}

	writeJSON(w, http.StatusOK, items)
}
