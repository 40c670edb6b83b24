package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/repository"
)

// memRepo adalah Repository di memori dengan semantik compare-and-swap yang
// sama dengan PostgreSQL.
type memRepo struct {
	mu sync.Mutex

	nextID        int64
	users         map[int64]model.User
	warga         map[int64]model.Warga
	jenis         map[int64]model.JenisSurat
	kk            map[int64]model.KartuKeluarga
	surat         map[int64]model.Surat
	history       []model.StatusHistory
	notifications []model.Notification
	penilaian     []model.Penilaian
	seq           map[int]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users: make(map[int64]model.User),
		warga: make(map[int64]model.Warga),
		jenis: make(map[int64]model.JenisSurat),
		kk:    make(map[int64]model.KartuKeluarga),
		surat: make(map[int64]model.Surat),
		seq:   make(map[int]int64),
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) Close() error { return nil }

func (r *memRepo) CreateUser(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.id()
	r.users[u.ID] = *u
	return nil
}

func (r *memRepo) CreateWargaUser(ctx context.Context, u *model.User, w *model.Warga) error {
	r.mu.Lock()
	for _, existing := range r.warga {
		if existing.NIK == w.NIK {
			r.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	r.mu.Unlock()

	if err := r.CreateUser(ctx, u); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = r.id()
	w.UserID = u.ID
	r.warga[u.ID] = *w
	return nil
}

func (r *memRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) ListUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			res = append(res, u)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) UpdateUser(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	hash := existing.PasswordHash
	if len(u.PasswordHash) > 0 {
		hash = u.PasswordHash
	}
	updated := *u
	updated.Username = existing.Username
	updated.PasswordHash = hash
	updated.CreatedAt = existing.CreatedAt
	r.users[u.ID] = updated
	return nil
}

func (r *memRepo) DeleteUser(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.surat {
		if s.PemohonID == id {
			return repository.ErrInUse
		}
	}
	delete(r.users, id)
	delete(r.warga, id)
	return nil
}

func (r *memRepo) GetWargaByUserID(ctx context.Context, userID int64) (*model.Warga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warga[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r *memRepo) UpdateWargaProfil(ctx context.Context, u *model.User, w *model.Warga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing, ok := r.warga[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if w.KartuKeluargaID != nil {
		if _, ok := r.kk[*w.KartuKeluargaID]; !ok {
			return repository.ErrNotFound
		}
	}

	user.Email, user.Nama, user.NoHP = u.Email, u.Nama, u.NoHP
	r.users[u.ID] = user

	w.ID = existing.ID
	w.UserID = u.ID
	w.NIK = existing.NIK
	r.warga[u.ID] = *w
	return nil
}

func (r *memRepo) ListJenisSurat(ctx context.Context, onlyActive bool) ([]model.JenisSurat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.JenisSurat
	for _, j := range r.jenis {
		if !onlyActive || j.Aktif {
			res = append(res, j)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Kode < res[j].Kode })
	return res, nil
}

func (r *memRepo) GetJenisSurat(ctx context.Context, id int64) (*model.JenisSurat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jenis[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r *memRepo) CreateJenisSurat(ctx context.Context, j *model.JenisSurat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jenis {
		if existing.Kode == j.Kode {
			return repository.ErrDuplicate
		}
	}
	j.ID = r.id()
	r.jenis[j.ID] = *j
	return nil
}

func (r *memRepo) UpdateJenisSurat(ctx context.Context, j *model.JenisSurat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jenis[j.ID]; !ok {
		return repository.ErrNotFound
	}
	r.jenis[j.ID] = *j
	return nil
}

func (r *memRepo) DeleteJenisSurat(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jenis[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.surat {
		if s.JenisSuratID == id {
			return repository.ErrInUse
		}
	}
	delete(r.jenis, id)
	return nil
}

func (r *memRepo) ListKartuKeluarga(ctx context.Context, q string) ([]model.KartuKeluarga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.KartuKeluarga
	for _, kk := range r.kk {
		if q == "" || strings.Contains(kk.NoKK, q) || strings.Contains(strings.ToLower(kk.KepalaKeluarga), strings.ToLower(q)) {
			res = append(res, kk)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].NoKK < res[j].NoKK })
	return res, nil
}

func (r *memRepo) GetKartuKeluarga(ctx context.Context, id int64) (*model.KartuKeluarga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kk, ok := r.kk[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &kk, nil
}

func (r *memRepo) createKKLocked(kk *model.KartuKeluarga) error {
	for _, existing := range r.kk {
		if existing.NoKK == kk.NoKK {
			return repository.ErrDuplicate
		}
	}
	kk.ID = r.id()
	r.kk[kk.ID] = *kk
	return nil
}

func (r *memRepo) CreateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createKKLocked(kk)
}

func (r *memRepo) UpdateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kk[kk.ID]; !ok {
		return repository.ErrNotFound
	}
	r.kk[kk.ID] = *kk
	return nil
}

func (r *memRepo) DeleteKartuKeluarga(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kk[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.kk, id)
	return nil
}

func (r *memRepo) ImportKartuKeluarga(ctx context.Context, items []model.KartuKeluarga) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted []string
	for _, kk := range items {
		kk := kk
		if err := r.createKKLocked(&kk); err != nil {
			continue
		}
		inserted = append(inserted, kk.NoKK)
	}
	return inserted, nil
}

func (r *memRepo) CreateSurat(ctx context.Context, s *model.Surat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jenis[s.JenisSuratID]
	if !ok {
		return repository.ErrNotFound
	}
	s.ID = r.id()
	s.UpdatedAt = s.TanggalPengajuan
	stored := *s
	stored.JenisSuratKode = j.Kode
	stored.JenisSuratNama = j.Nama
	r.surat[s.ID] = stored
	r.history = append(r.history, model.StatusHistory{
		ID: r.id(), SuratID: s.ID, NewStatus: s.Status, ChangedBy: s.PemohonID,
		Role: model.RoleWarga, CreatedAt: s.TanggalPengajuan,
	})
	return nil
}

func (r *memRepo) GetSurat(ctx context.Context, id int64) (*model.Surat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surat[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *memRepo) ListSurat(ctx context.Context, f model.SuratFilter) ([]model.Surat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Surat
	for _, s := range r.surat {
		if f.PemohonID != nil && s.PemohonID != *f.PemohonID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, s.Status) {
			continue
		}
		if f.From != nil && s.TanggalPengajuan.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.TanggalPengajuan.Before(*f.To) {
			continue
		}
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func containsStatus(list []model.SuratStatus, st model.SuratStatus) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

func (r *memRepo) CountSuratByStatus(ctx context.Context, pemohonID *int64) (map[model.SuratStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(map[model.SuratStatus]int64)
	for _, s := range r.surat {
		if pemohonID != nil && s.PemohonID != *pemohonID {
			continue
		}
		res[s.Status]++
	}
	return res, nil
}

func (r *memRepo) TransitionSurat(ctx context.Context, t model.Transition) (*model.Surat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.surat[t.SuratID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Status != t.From {
		return nil, repository.ErrStatusConflict
	}
	if t.NoSurat != nil {
		for id, other := range r.surat {
			if id != s.ID && other.NoSurat != nil && *other.NoSurat == *t.NoSurat {
				return nil, repository.ErrDuplicate
			}
		}
		no := *t.NoSurat
		s.NoSurat = &no
	}

	at := t.At
	actor := t.ActorID
	switch t.Role {
	case model.RoleRT:
		s.RTVerifiedBy, s.RTVerifiedAt = &actor, &at
	case model.RoleStaff:
		s.StaffVerifiedBy, s.StaffVerifiedAt = &actor, &at
	case model.RoleLurah:
		s.LurahVerifiedBy, s.LurahVerifiedAt = &actor, &at
	}
	if t.To == model.StatusIssued {
		s.IssuedAt = &at
	}
	s.Status = t.To
	s.CatatanPenolakan = t.Catatan
	s.UpdatedAt = at
	r.surat[s.ID] = s

	from := t.From
	r.history = append(r.history, model.StatusHistory{
		ID: r.id(), SuratID: s.ID, OldStatus: &from, NewStatus: t.To,
		ChangedBy: t.ActorID, Role: t.Role, Catatan: t.Catatan, CreatedAt: at,
	})
	r.notifications = append(r.notifications, t.Notifications...)

	out := s
	return &out, nil
}

func (r *memRepo) ListStatusHistory(ctx context.Context, suratID int64) ([]model.StatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.StatusHistory
	for _, h := range r.history {
		if h.SuratID == suratID {
			res = append(res, h)
		}
	}
	return res, nil
}

func (r *memRepo) NextNomorSurat(ctx context.Context, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[year]++
	return r.seq[year], nil
}

func (r *memRepo) CreatePenilaian(ctx context.Context, p *model.Penilaian) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surat[p.SuratID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.penilaian {
		if existing.SuratID == p.SuratID && existing.TahapRole == p.TahapRole {
			return repository.ErrDuplicateRating
		}
	}
	p.ID = r.id()
	r.penilaian = append(r.penilaian, *p)
	return nil
}

func (r *memRepo) ListPenilaian(ctx context.Context, suratID int64) ([]model.Penilaian, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Penilaian
	for _, p := range r.penilaian {
		if p.SuratID == suratID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *memRepo) RatingSummary(ctx context.Context) ([]model.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := make(map[model.Role]*model.RatingSummary)
	var order []model.Role
	for _, p := range r.penilaian {
		s, ok := sums[p.TahapRole]
		if !ok {
			s = &model.RatingSummary{TahapRole: p.TahapRole}
			sums[p.TahapRole] = s
			order = append(order, p.TahapRole)
		}
		s.RataRata = (s.RataRata*float64(s.Jumlah) + float64(p.Rating)) / float64(s.Jumlah+1)
		s.Jumlah++
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	res := make([]model.RatingSummary, 0, len(order))
	for _, role := range order {
		res = append(res, *sums[role])
	}
	return res, nil
}
