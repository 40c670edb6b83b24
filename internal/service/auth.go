package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/repository"
)

const dateOnly = "2006-01-02"

// RegisterInput adalah data pendaftaran mandiri warga.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=100"`
	Password        string `json:"password" validate:"required,min=8"`
	Email           string `json:"email" validate:"required,email"`
	NoHP            string `json:"noHp" validate:"omitempty,max=30"`
	NIK             string `json:"nik" validate:"required,nik"`
	NamaLengkap     string `json:"namaLengkap" validate:"required,max=150"`
	TempatLahir     string `json:"tempatLahir" validate:"max=100"`
	TanggalLahir    string `json:"tanggalLahir" validate:"omitempty,datetime=2006-01-02"`
	JenisKelamin    string `json:"jenisKelamin" validate:"omitempty,oneof=L P"`
	Pekerjaan       string `json:"pekerjaan" validate:"max=100"`
	Alamat          string `json:"alamat" validate:"required"`
	KartuKeluargaID *int64 `json:"kartuKeluargaId"`
}

func parseDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return nil, invalid(field, "format tanggal harus YYYY-MM-DD")
	}
	return &t, nil
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// RegisterWarga membuat akun WARGA beserta profil penduduknya.
func (s *Service) RegisterWarga(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.NIK = strings.TrimSpace(in.NIK)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	lahir, err := parseDate("tanggalLahir", in.TanggalLahir)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		Nama:         in.NamaLengkap,
		NoHP:         in.NoHP,
		PasswordHash: hash,
		Role:         model.RoleWarga,
	}
	w := &model.Warga{
		KartuKeluargaID: in.KartuKeluargaID,
		NIK:             in.NIK,
		NamaLengkap:     in.NamaLengkap,
		TempatLahir:     in.TempatLahir,
		TanggalLahir:    lahir,
		JenisKelamin:    in.JenisKelamin,
		Pekerjaan:       in.Pekerjaan,
		Alamat:          in.Alamat,
	}

	if err := s.repo.CreateWargaUser(ctx, u, w); err != nil {
		return nil, err
	}

	s.logger.Info("warga registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// Authenticate memeriksa username dan sandi lalu mengembalikan penggunanya.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CurrentUser mengembalikan akun pengguna yang sedang login.
func (s *Service) CurrentUser(ctx context.Context, actor model.Actor) (*model.User, error) {
	return s.repo.GetUserByID(ctx, actor.UserID)
}

// EnsureSuperadmin memastikan akun SUPERADMIN dengan username tersebut ada.
func (s *Service) EnsureSuperadmin(ctx context.Context, username, password, email string) error {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		if u.Role != model.RoleSuperadmin {
			s.logger.Warn("admin username belongs to a non-superadmin account",
				zap.String("username", username), zap.String("role", string(u.Role)))
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if password == "" {
		return fmt.Errorf("superadmin %q does not exist and ADMIN_PASSWORD is empty", username)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     username,
		Email:        email,
		Nama:         "Super Admin",
		PasswordHash: hash,
		Role:         model.RoleSuperadmin,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}

	s.logger.Info("superadmin created", zap.String("username", username))
	return nil
}
