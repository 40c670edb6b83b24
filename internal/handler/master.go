package handler

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportSize   = 10 << 20
)

// ListUsers mengembalikan akun pengguna, opsional disaring ?role=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := model.Role(strings.ToUpper(r.URL.Query().Get("role")))

	items, err := h.service.ListUsers(r.Context(), role)
	if err != nil {
		h.writeError(w, r, "list users", err)
		return
	}
	if items == nil {
		items = []model.User{}
	}

	writeJSON(w, http.StatusOK, items)
}

// CreateUser membuat akun petugas.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.UserInput
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser memperbarui akun pengguna.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.UserInput
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// DeleteUser menghapus akun pengguna.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor, id); err != nil {
		h.writeError(w, r, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListJenisSurat mengembalikan katalog jenis surat. Selain SUPERADMIN hanya
// melihat jenis yang aktif.
func (h *Handler) ListJenisSurat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	onlyActive := actor.Role != model.RoleSuperadmin || r.URL.Query().Get("aktif") == "true"

	items, err := h.service.ListJenisSurat(r.Context(), onlyActive)
	if err != nil {
		h.writeError(w, r, "list jenis surat", err)
		return
	}
	if items == nil {
		items = []model.JenisSurat{}
	}

	writeJSON(w, http.StatusOK, items)
}

// CreateJenisSurat menambah jenis surat.
func (h *Handler) CreateJenisSurat(w http.ResponseWriter, r *http.Request) {
	var req service.JenisSuratInput
	if !decodeJSON(w, r, &req) {
		return
	}

	j, err := h.service.CreateJenisSurat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "create jenis surat", err)
		return
	}

	writeJSON(w, http.StatusCreated, j)
}

// UpdateJenisSurat memperbarui jenis surat.
func (h *Handler) UpdateJenisSurat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.JenisSuratInput
	if !decodeJSON(w, r, &req) {
		return
	}

	j, err := h.service.UpdateJenisSurat(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, "update jenis surat", err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

// DeleteJenisSurat menghapus jenis surat.
func (h *Handler) DeleteJenisSurat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteJenisSurat(r.Context(), id); err != nil {
		h.writeError(w, r, "delete jenis surat", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListKartuKeluarga mengembalikan data KK dengan pencarian ?q=.
func (h *Handler) ListKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListKartuKeluarga(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.writeError(w, r, "list kartu keluarga", err)
		return
	}
	if items == nil {
		items = []model.KartuKeluarga{}
	}

	writeJSON(w, http.StatusOK, items)
}

// GetKartuKeluarga mengembalikan satu KK.
func (h *Handler) GetKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	kk, err := h.service.GetKartuKeluarga(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get kartu keluarga", err)
		return
	}

	writeJSON(w, http.StatusOK, kk)
}

// CreateKartuKeluarga menambah KK.
func (h *Handler) CreateKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	var req service.KKInput
	if !decodeJSON(w, r, &req) {
		return
	}

	kk, err := h.service.CreateKartuKeluarga(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "create kartu keluarga", err)
		return
	}

	writeJSON(w, http.StatusCreated, kk)
}

// UpdateKartuKeluarga memperbarui KK.
func (h *Handler) UpdateKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.KKInput
	if !decodeJSON(w, r, &req) {
		return
	}

	kk, err := h.service.UpdateKartuKeluarga(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, "update kartu keluarga", err)
		return
	}

	writeJSON(w, http.StatusOK, kk)
}

// DeleteKartuKeluarga menghapus KK.
func (h *Handler) DeleteKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteKartuKeluarga(r.Context(), id); err != nil {
		h.writeError(w, r, "delete kartu keluarga", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// KKTemplate mengunduh templat Excel impor KK.
func (h *Handler) KKTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.WriteKKTemplate(&buf); err != nil {
		h.writeError(w, r, "kk template", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="template-kartu-keluarga.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ImportKartuKeluarga menerima berkas Excel pada field multipart "file".
func (h *Handler) ImportKartuKeluarga(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "berkas tidak valid atau terlalu besar", Field: "file"})
		return
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "wajib diisi", Field: "file"})
		return
	}
	defer f.Close()

	res, err := h.service.ImportKartuKeluarga(r.Context(), f)
	if err != nil {
		h.writeError(w, r, "import kartu keluarga", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetProfil mengembalikan profil warga yang sedang login.
func (h *Handler) GetProfil(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProfil(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "get profil", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// UpdateProfil memperbarui profil warga yang sedang login.
func (h *Handler) UpdateProfil(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req service.ProfilInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateProfil(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, "update profil", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
