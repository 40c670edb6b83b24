// Package model berisi entitas domain layanan SISURAT.
package model

import "time"

// Role adalah peran pengguna dalam sistem.
type Role string

const (
	RoleSuperadmin Role = "SUPERADMIN"
	RoleWarga      Role = "WARGA"
	RoleRT         Role = "RT"
	RoleStaff      Role = "STAFF"
	RoleLurah      Role = "LURAH"
)

// IsValid melaporkan apakah r termasuk peran yang dikenal.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperadmin, RoleWarga, RoleRT, RoleStaff, RoleLurah:
		return true
	default:
		return false
	}
}

// IsReviewer melaporkan apakah r adalah salah satu tahap pemeriksa surat.
func (r Role) IsReviewer() bool {
	return r == RoleRT || r == RoleStaff || r == RoleLurah
}

// HomePath mengembalikan halaman awal untuk peran r setelah login.
func (r Role) HomePath() string {
	switch r {
	case RoleSuperadmin:
		return "/admin/dashboard"
	case RoleRT:
		return "/rt/dashboard"
	case RoleStaff:
		return "/staff/dashboard"
	case RoleLurah:
		return "/lurah/dashboard"
	default:
		return "/warga/dashboard"
	}
}

// SuratStatus adalah status pengajuan surat.
type SuratStatus string

const (
	StatusSubmitted       SuratStatus = "SUBMITTED"
	StatusVerifiedByRT    SuratStatus = "VERIFIED_BY_RT"
	StatusRejectedByRT    SuratStatus = "REJECTED_BY_RT"
	StatusVerifiedByStaff SuratStatus = "VERIFIED_BY_STAFF"
	StatusRejectedByStaff SuratStatus = "REJECTED_BY_STAFF"
	StatusVerifiedByLurah SuratStatus = "VERIFIED_BY_LURAH"
	StatusRejectedByLurah SuratStatus = "REJECTED_BY_LURAH"
	StatusIssued          SuratStatus = "ISSUED"
)

// AllStatuses mengembalikan seluruh status dalam urutan alur.
func AllStatuses() []SuratStatus {
	return []SuratStatus{
		StatusSubmitted,
		StatusVerifiedByRT,
		StatusRejectedByRT,
		StatusVerifiedByStaff,
		StatusRejectedByStaff,
		StatusVerifiedByLurah,
		StatusRejectedByLurah,
		StatusIssued,
	}
}

// IsValid melaporkan apakah s termasuk status yang dikenal.
func (s SuratStatus) IsValid() bool {
	for _, v := range AllStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// IsRejected melaporkan apakah s adalah status penolakan pada salah satu tahap.
func (s SuratStatus) IsRejected() bool {
	return s == StatusRejectedByRT || s == StatusRejectedByStaff || s == StatusRejectedByLurah
}

// IsTerminal melaporkan apakah tidak ada transisi lanjutan dari s.
func (s SuratStatus) IsTerminal() bool {
	return s.IsRejected() || s == StatusIssued
}

// Actor adalah pengguna terautentikasi yang melakukan sebuah operasi.
type Actor struct {
	UserID   int64
	Username string
	Role     Role
}

// User adalah akun pengguna.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Nama         string    `json:"nama"`
	NoHP         string    `json:"noHp,omitempty"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// KartuKeluarga adalah data kartu keluarga (satu per rumah tangga).
type KartuKeluarga struct {
	ID             int64     `json:"id"`
	NoKK           string    `json:"noKk"`
	KepalaKeluarga string    `json:"kepalaKeluarga"`
	Alamat         string    `json:"alamat"`
	RT             string    `json:"rt"`
	RW             string    `json:"rw"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Warga adalah profil penduduk yang terhubung ke satu akun pengguna.
type Warga struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	KartuKeluargaID *int64     `json:"kartuKeluargaId,omitempty"`
	NIK             string     `json:"nik"`
	NamaLengkap     string     `json:"namaLengkap"`
	TempatLahir     string     `json:"tempatLahir"`
	TanggalLahir    *time.Time `json:"tanggalLahir,omitempty"`
	JenisKelamin    string     `json:"jenisKelamin"`
	Pekerjaan       string     `json:"pekerjaan"`
	Alamat          string     `json:"alamat"`
}

// JenisSurat adalah katalog jenis surat yang dapat diajukan.
type JenisSurat struct {
	ID        int64     `json:"id"`
	Kode      string    `json:"kode"`
	Nama      string    `json:"nama"`
	Deskripsi string    `json:"deskripsi"`
	Aktif     bool      `json:"aktif"`
	CreatedAt time.Time `json:"createdAt"`
}

// Surat adalah pengajuan surat oleh warga beserta jejak verifikasinya.
type Surat struct {
	ID               int64
	NoSurat          *string
	JenisSuratID     int64
	JenisSuratKode   string
	JenisSuratNama   string
	PemohonID        int64
	NamaPemohon      string
	NIKPemohon       string
	AlamatPemohon    string
	Keperluan        string
	Status           SuratStatus
	CatatanPenolakan *string
	TanggalPengajuan time.Time

	RTVerifiedBy    *int64
	RTVerifiedAt    *time.Time
	StaffVerifiedBy *int64
	StaffVerifiedAt *time.Time
	LurahVerifiedBy *int64
	LurahVerifiedAt *time.Time
	IssuedAt        *time.Time

	UpdatedAt time.Time
}

// SuratFilter membatasi daftar surat.
type SuratFilter struct {
	PemohonID *int64
	Statuses  []SuratStatus
	From      *time.Time
	To        *time.Time
	Limit     int
}

// StatusHistory mencatat satu perubahan status surat.
type StatusHistory struct {
	ID        int64        `json:"id"`
	SuratID   int64        `json:"idSurat"`
	OldStatus *SuratStatus `json:"oldStatus,omitempty"`
	NewStatus SuratStatus  `json:"newStatus"`
	ChangedBy int64        `json:"changedBy"`
	Role      Role         `json:"role"`
	Catatan   *string      `json:"catatan,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Transition adalah perubahan status yang akan ditulis secara atomik
// bersama riwayat dan notifikasinya.
type Transition struct {
	SuratID       int64
	From          SuratStatus
	To            SuratStatus
	Role          Role
	ActorID       int64
	Catatan       *string
	NoSurat       *string
	At            time.Time
	Notifications []Notification
}

// Penilaian adalah penilaian kepuasan untuk satu tahap pemeriksaan.
type Penilaian struct {
	ID        int64     `json:"id"`
	SuratID   int64     `json:"idSurat"`
	TahapRole Role      `json:"tahapRole"`
	Rating    int       `json:"rating"`
	Deskripsi *string   `json:"deskripsi,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingSummary merangkum penilaian per tahap.
type RatingSummary struct {
	TahapRole Role    `json:"tahapRole"`
	Jumlah    int64   `json:"jumlah"`
	RataRata  float64 `json:"rataRata"`
}

// NotificationChannel adalah kanal pengiriman notifikasi.
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "EMAIL"
	ChannelWhatsApp NotificationChannel = "WHATSAPP"
)

// NotificationStatus adalah status pengiriman notifikasi di outbox.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification adalah satu pesan keluar di outbox.
type Notification struct {
	ID            int64
	SuratID       *int64
	UserID        int64
	Channel       NotificationChannel
	Recipient     string
	Subject       string
	Body          string
	Status        NotificationStatus
	Attempts      int
	LastError     *string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	SentAt        *time.Time
}
