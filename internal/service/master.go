package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/export"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/repository"
)

// UserInput adalah data akun yang dikelola SUPERADMIN.
type UserInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Email    string `json:"email" validate:"required,email"`
	Nama     string `json:"nama" validate:"required,max=150"`
	NoHP     string `json:"noHp" validate:"omitempty,max=30"`
	Role     string `json:"role" validate:"required,oneof=SUPERADMIN RT STAFF LURAH WARGA"`
}

// ListUsers mengembalikan akun pengguna, opsional disaring berdasarkan peran.
func (s *Service) ListUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	if role != "" && !role.IsValid() {
		return nil, invalid("role", "peran tidak dikenal")
	}
	return s.repo.ListUsers(ctx, role)
}

// CreateUser membuat akun petugas. Akun WARGA dibuat melalui pendaftaran
// karena membutuhkan profil penduduk.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*model.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, invalid("password", "wajib diisi")
	}
	if model.Role(in.Role) == model.RoleWarga {
		return nil, invalid("role", "akun WARGA dibuat melalui pendaftaran")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		Nama:         in.Nama,
		NoHP:         in.NoHP,
		PasswordHash: hash,
		Role:         model.Role(in.Role),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser memperbarui akun. Sandi hanya diganti jika diisi.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserInput) (*model.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role := model.Role(in.Role)
	if (u.Role == model.RoleWarga) != (role == model.RoleWarga) {
		return nil, invalid("role", "peran WARGA tidak dapat ditukar dengan peran petugas")
	}

	u.Email = in.Email
	u.Nama = in.Nama
	u.NoHP = in.NoHP
	u.Role = role
	u.PasswordHash = nil
	if in.Password != "" {
		if u.PasswordHash, err = hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	u.PasswordHash = nil
	return u, nil
}

// DeleteUser menghapus akun. Admin tidak dapat menghapus akunnya sendiri.
func (s *Service) DeleteUser(ctx context.Context, actor model.Actor, id int64) error {
	if actor.UserID == id {
		return invalid("id", "tidak dapat menghapus akun sendiri")
	}
	return s.repo.DeleteUser(ctx, id)
}

// JenisSuratInput adalah data katalog jenis surat.
type JenisSuratInput struct {
	Kode      string `json:"kode" validate:"required,max=20"`
	Nama      string `json:"nama" validate:"required,max=150"`
	Deskripsi string `json:"deskripsi"`
	Aktif     *bool  `json:"aktif"`
}

func (in JenisSuratInput) toModel() *model.JenisSurat {
	aktif := true
	if in.Aktif != nil {
		aktif = *in.Aktif
	}
	return &model.JenisSurat{
		Kode:      strings.ToUpper(strings.TrimSpace(in.Kode)),
		Nama:      strings.TrimSpace(in.Nama),
		Deskripsi: in.Deskripsi,
		Aktif:     aktif,
	}
}

// ListJenisSurat mengembalikan katalog jenis surat.
func (s *Service) ListJenisSurat(ctx context.Context, onlyActive bool) ([]model.JenisSurat, error) {
	return s.repo.ListJenisSurat(ctx, onlyActive)
}

// CreateJenisSurat menambah jenis surat.
func (s *Service) CreateJenisSurat(ctx context.Context, in JenisSuratInput) (*model.JenisSurat, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	j := in.toModel()
	if err := s.repo.CreateJenisSurat(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateJenisSurat memperbarui jenis surat.
func (s *Service) UpdateJenisSurat(ctx context.Context, id int64, in JenisSuratInput) (*model.JenisSurat, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	j := in.toModel()
	j.ID = id
	if err := s.repo.UpdateJenisSurat(ctx, j); err != nil {
		return nil, err
	}
	return s.repo.GetJenisSurat(ctx, id)
}

// DeleteJenisSurat menghapus jenis surat yang belum dipakai.
func (s *Service) DeleteJenisSurat(ctx context.Context, id int64) error {
	return s.repo.DeleteJenisSurat(ctx, id)
}

// KKInput adalah data kartu keluarga.
type KKInput struct {
	NoKK           string `json:"noKk" validate:"required,nokk"`
	KepalaKeluarga string `json:"kepalaKeluarga" validate:"required,max=150"`
	Alamat         string `json:"alamat"`
	RT             string `json:"rt" validate:"omitempty,max=5"`
	RW             string `json:"rw" validate:"omitempty,max=5"`
}

func (in KKInput) toModel() *model.KartuKeluarga {
	return &model.KartuKeluarga{
		NoKK:           strings.TrimSpace(in.NoKK),
		KepalaKeluarga: strings.TrimSpace(in.KepalaKeluarga),
		Alamat:         in.Alamat,
		RT:             in.RT,
		RW:             in.RW,
	}
}

// ListKartuKeluarga mengembalikan data KK dengan pencarian opsional.
func (s *Service) ListKartuKeluarga(ctx context.Context, q string) ([]model.KartuKeluarga, error) {
	return s.repo.ListKartuKeluarga(ctx, strings.TrimSpace(q))
}

// GetKartuKeluarga mengembalikan satu KK.
func (s *Service) GetKartuKeluarga(ctx context.Context, id int64) (*model.KartuKeluarga, error) {
	return s.repo.GetKartuKeluarga(ctx, id)
}

// CreateKartuKeluarga menambah KK.
func (s *Service) CreateKartuKeluarga(ctx context.Context, in KKInput) (*model.KartuKeluarga, error) {
	in.NoKK = strings.TrimSpace(in.NoKK)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	kk := in.toModel()
	if err := s.repo.CreateKartuKeluarga(ctx, kk); err != nil {
		return nil, err
	}
	return kk, nil
}

// UpdateKartuKeluarga memperbarui KK.
func (s *Service) UpdateKartuKeluarga(ctx context.Context, id int64, in KKInput) (*model.KartuKeluarga, error) {
	in.NoKK = strings.TrimSpace(in.NoKK)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	kk := in.toModel()
	kk.ID = id
	if err := s.repo.UpdateKartuKeluarga(ctx, kk); err != nil {
		return nil, err
	}
	return s.repo.GetKartuKeluarga(ctx, id)
}

// DeleteKartuKeluarga menghapus KK.
func (s *Service) DeleteKartuKeluarga(ctx context.Context, id int64) error {
	return s.repo.DeleteKartuKeluarga(ctx, id)
}

// ImportResult adalah ringkasan impor KK dari Excel.
type ImportResult struct {
	Total    int               `json:"total"`
	Inserted int               `json:"inserted"`
	Errors   []export.RowError `json:"errors"`
}

// ImportKartuKeluarga membaca berkas Excel dan menyimpan KK yang valid. Nomor
// KK yang sudah terdaftar dilaporkan sebagai baris yang dilewati.
func (s *Service) ImportKartuKeluarga(ctx context.Context, r io.Reader) (*ImportResult, error) {
	items, rowErrs, err := export.ReadKKImport(r)
	if err != nil {
		return nil, invalid("file", fmt.Sprintf("berkas tidak dapat dibaca: %v", err))
	}

	res := &ImportResult{Total: len(items) + len(rowErrs), Errors: rowErrs}
	if len(items) == 0 {
		return res, nil
	}

	inserted, err := s.repo.ImportKartuKeluarga(ctx, items)
	if err != nil {
		return nil, err
	}
	res.Inserted = len(inserted)

	done := make(map[string]struct{}, len(inserted))
	for _, no := range inserted {
		done[no] = struct{}{}
	}
	for _, kk := range items {
		if _, ok := done[kk.NoKK]; !ok {
			res.Errors = append(res.Errors, export.RowError{NoKK: kk.NoKK, Message: "nomor KK sudah terdaftar"})
		}
	}

	s.logger.Info("kartu keluarga imported",
		zap.Int("total", res.Total), zap.Int("inserted", res.Inserted), zap.Int("skipped", len(res.Errors)))
	return res, nil
}

// WriteKKTemplate menulis templat Excel impor KK.
func (s *Service) WriteKKTemplate(w io.Writer) error {
	return export.WriteKKTemplate(w)
}

// Profil adalah akun dan profil penduduk milik warga.
type Profil struct {
	User  *model.User  `json:"user"`
	Warga *model.Warga `json:"warga"`
}

// ProfilInput adalah perubahan profil oleh warga sendiri. NIK tidak dapat diubah.
type ProfilInput struct {
	Email           string `json:"email" validate:"required,email"`
	NoHP            string `json:"noHp" validate:"omitempty,max=30"`
	NamaLengkap     string `json:"namaLengkap" validate:"required,max=150"`
	TempatLahir     string `json:"tempatLahir" validate:"max=100"`
	TanggalLahir    string `json:"tanggalLahir" validate:"omitempty,datetime=2006-01-02"`
	JenisKelamin    string `json:"jenisKelamin" validate:"omitempty,oneof=L P"`
	Pekerjaan       string `json:"pekerjaan" validate:"max=100"`
	Alamat          string `json:"alamat" validate:"required"`
	KartuKeluargaID *int64 `json:"kartuKeluargaId"`
}

// GetProfil mengembalikan profil warga yang sedang login.
func (s *Service) GetProfil(ctx context.Context, actor model.Actor) (*Profil, error) {
	if actor.Role != model.RoleWarga {
		return nil, ErrForbidden
	}

	u, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	w, err := s.repo.GetWargaByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return &Profil{User: u, Warga: w}, nil
}

// UpdateProfil memperbarui akun dan profil warga yang sedang login.
func (s *Service) UpdateProfil(ctx context.Context, actor model.Actor, in ProfilInput) (*Profil, error) {
	if actor.Role != model.RoleWarga {
		return nil, ErrForbidden
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	lahir, err := parseDate("tanggalLahir", in.TanggalLahir)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	u.Email = in.Email
	u.NoHP = in.NoHP
	u.Nama = in.NamaLengkap

	w := &model.Warga{
		UserID:          actor.UserID,
		KartuKeluargaID: in.KartuKeluargaID,
		NamaLengkap:     in.NamaLengkap,
		TempatLahir:     in.TempatLahir,
		TanggalLahir:    lahir,
		JenisKelamin:    in.JenisKelamin,
		Pekerjaan:       in.Pekerjaan,
		Alamat:          in.Alamat,
	}
	if err := s.repo.UpdateWargaProfil(ctx, u, w); err != nil {
		return nil, err
	}
	return &Profil{User: u, Warga: w}, nil
}
