package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/kelurahan-digital/sisurat/internal/middleware"
	"github.com/kelurahan-digital/sisurat/internal/model"
)

// SetupRouter menyusun rute HTTP dan middleware layanan SISURAT.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(h.auth.Middleware).Get("/me", h.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Get("/surat", h.ListSurat)
			r.Get("/surat/{id}", h.GetSurat)
			r.Get("/surat/{id}/riwayat", h.History)
			r.Get("/surat/{id}/penilaian", h.ListPenilaian)
			r.Get("/surat/{id}/pdf", h.SuratPDF)

			r.Get("/jenis-surat", h.ListJenisSurat)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/notifikasi", h.Notifikasi)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireRoles(model.RoleWarga))

			r.Post("/surat", h.SubmitSurat)
			r.Post("/penilaian", h.SubmitPenilaian)
			r.Get("/warga/profil", h.GetProfil)
			r.Put("/warga/profil", h.UpdateProfil)
		})

		r.With(h.auth.RequireRoles(model.RoleRT)).Patch("/rt/surat/{id}/verify", h.VerifySurat)
		r.With(h.auth.RequireRoles(model.RoleStaff)).Patch("/staff/surat/{id}/verify", h.VerifySurat)
		r.With(h.auth.RequireRoles(model.RoleLurah)).Patch("/lurah/surat/{id}/verify", h.VerifySurat)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.auth.RequireRoles(model.RoleSuperadmin))

			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
			r.Put("/users/{id}", h.UpdateUser)
			r.Delete("/users/{id}", h.DeleteUser)

			r.Post("/jenis-surat", h.CreateJenisSurat)
			r.Put("/jenis-surat/{id}", h.UpdateJenisSurat)
			r.Delete("/jenis-surat/{id}", h.DeleteJenisSurat)

			r.Get("/kartu-keluarga", h.ListKartuKeluarga)
			r.Post("/kartu-keluarga", h.CreateKartuKeluarga)
			r.Get("/kartu-keluarga/template", h.KKTemplate)
			r.Post("/kartu-keluarga/import", h.ImportKartuKeluarga)
			r.Get("/kartu-keluarga/{id}", h.GetKartuKeluarga)
			r.Put("/kartu-keluarga/{id}", h.UpdateKartuKeluarga)
			r.Delete("/kartu-keluarga/{id}", h.DeleteKartuKeluarga)
		})

		r.Route("/laporan", func(r chi.Router) {
			r.Use(h.auth.RequireRoles(model.RoleSuperadmin, model.RoleLurah))

			r.Get("/surat", h.ReportSurat)
			r.Get("/surat.xlsx", h.ReportSuratExcel)
			r.Get("/penilaian", h.RatingSummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
