package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

const suratSelect = `SELECT s.id, s.no_surat, s.jenis_surat_id, j.kode, j.nama, s.pemohon_id,
	s.nama_pemohon, s.nik_pemohon, s.alamat_pemohon, s.keperluan, s.status, s.catatan_penolakan,
	s.tanggal_pengajuan, s.rt_verified_by, s.rt_verified_at, s.staff_verified_by, s.staff_verified_at,
	s.lurah_verified_by, s.lurah_verified_at, s.issued_at, s.updated_at
	FROM surat s JOIN jenis_surat j ON j.id = s.jenis_surat_id`

func scanSurat(row rowScanner) (*model.Surat, error) {
	var (
		s      model.Surat
		status string
	)
	err := row.Scan(
		&s.ID, &s.NoSurat, &s.JenisSuratID, &s.JenisSuratKode, &s.JenisSuratNama, &s.PemohonID,
		&s.NamaPemohon, &s.NIKPemohon, &s.AlamatPemohon, &s.Keperluan, &status, &s.CatatanPenolakan,
		&s.TanggalPengajuan, &s.RTVerifiedBy, &s.RTVerifiedAt, &s.StaffVerifiedBy, &s.StaffVerifiedAt,
		&s.LurahVerifiedBy, &s.LurahVerifiedAt, &s.IssuedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = model.SuratStatus(status)
	return &s, nil
}

// stageColumns memetakan peran pemeriksa ke kolom jejak verifikasinya.
var stageColumns = map[model.Role][2]string{
	model.RoleRT:    {"rt_verified_by", "rt_verified_at"},
	model.RoleStaff: {"staff_verified_by", "staff_verified_at"},
	model.RoleLurah: {"lurah_verified_by", "lurah_verified_at"},
}

// CreateSurat menyimpan pengajuan baru beserta baris riwayat awalnya.
func (r *PostgresRepository) CreateSurat(ctx context.Context, s *model.Surat) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO surat (jenis_surat_id, pemohon_id, nama_pemohon, nik_pemohon, alamat_pemohon,
		                    keperluan, status, tanggal_pengajuan, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id, updated_at`,
		s.JenisSuratID, s.PemohonID, s.NamaPemohon, s.NIKPemohon, s.AlamatPemohon,
		s.Keperluan, string(s.Status), s.TanggalPengajuan,
	).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		if foreignKeyViolation(err) {
			return fmt.Errorf("%w: jenis surat %d", ErrNotFound, s.JenisSuratID)
		}
		return fmt.Errorf("insert surat: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO surat_status_history (surat_id, old_status, new_status, changed_by, role, created_at)
		 VALUES ($1, NULL, $2, $3, $4, $5)`,
		s.ID, string(s.Status), s.PemohonID, string(model.RoleWarga), s.TanggalPengajuan,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetSurat mengembalikan surat berdasarkan ID.
func (r *PostgresRepository) GetSurat(ctx context.Context, id int64) (*model.Surat, error) {
	s, err := scanSurat(r.pool.QueryRow(ctx, suratSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get surat: %w", err)
	}
	return s, nil
}

func buildSuratWhere(f model.SuratFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PemohonID != nil {
		add("s.pemohon_id = $%d", *f.PemohonID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		add("s.status = ANY($%d)", statuses)
	}
	if f.From != nil {
		add("s.tanggal_pengajuan >= $%d", *f.From)
	}
	if f.To != nil {
		add("s.tanggal_pengajuan < $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSurat mengembalikan surat sesuai filter, terbaru lebih dulu.
func (r *PostgresRepository) ListSurat(ctx context.Context, f model.SuratFilter) ([]model.Surat, error) {
	where, args := buildSuratWhere(f)
	query := suratSelect + where + ` ORDER BY s.tanggal_pengajuan DESC, s.id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select surat: %w", err)
	}
	defer rows.Close()

	var res []model.Surat
	for rows.Next() {
		s, err := scanSurat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan surat: %w", err)
		}
		res = append(res, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CountSuratByStatus menghitung surat per status secara langsung dari tabel.
func (r *PostgresRepository) CountSuratByStatus(ctx context.Context, pemohonID *int64) (map[model.SuratStatus]int64, error) {
	where, args := buildSuratWhere(model.SuratFilter{PemohonID: pemohonID})
	rows, err := r.pool.Query(ctx, `SELECT s.status, COUNT(*) FROM surat s`+where+` GROUP BY s.status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count surat: %w", err)
	}
	defer rows.Close()

	res := make(map[model.SuratStatus]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		res[model.SuratStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// TransitionSurat menulis perubahan status dengan compare-and-swap pada kolom
// status, lalu riwayat dan notifikasinya dalam transaksi yang sama.
func (r *PostgresRepository) TransitionSurat(ctx context.Context, t model.Transition) (*model.Surat, error) {
	cols, ok := stageColumns[t.Role]
	if !ok {
		return nil, fmt.Errorf("no stage columns for role %s", t.Role)
	}

	err := r.withRetry(ctx, func() error {
		return r.transitionTx(ctx, t, cols)
	})
	if err != nil {
		return nil, err
	}

	return r.GetSurat(ctx, t.SuratID)
}

func (r *PostgresRepository) transitionTx(ctx context.Context, t model.Transition, cols [2]string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(
		`UPDATE surat
		 SET status = $3,
		     catatan_penolakan = $4,
		     no_surat = COALESCE($5, no_surat),
		     %s = $6, %s = $7,
		     issued_at = CASE WHEN $3 = '%s' THEN $7 ELSE issued_at END,
		     updated_at = $7
		 WHERE id = $1 AND status = $2`,
		cols[0], cols[1], model.StatusIssued,
	)

	tag, err := tx.Exec(ctx, query,
		t.SuratID, string(t.From), string(t.To), t.Catatan, t.NoSurat, t.ActorID, t.At,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, constraint)
		}
		return fmt.Errorf("update surat status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM surat WHERE id = $1)`, t.SuratID).Scan(&exists); err != nil {
			return fmt.Errorf("check surat: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO surat_status_history (surat_id, old_status, new_status, changed_by, role, catatan, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.SuratID, string(t.From), string(t.To), t.ActorID, string(t.Role), t.Catatan, t.At,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if err := insertNotifications(ctx, tx, t.Notifications); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListStatusHistory mengembalikan riwayat status surat dari yang paling awal.
func (r *PostgresRepository) ListStatusHistory(ctx context.Context, suratID int64) ([]model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, surat_id, old_status, new_status, changed_by, role, catatan, created_at
		 FROM surat_status_history
		 WHERE surat_id = $1
		 ORDER BY created_at, id`,
		suratID,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var res []model.StatusHistory
	for rows.Next() {
		var (
			h         model.StatusHistory
			oldStatus *string
			newStatus string
			role      string
		)
		if err := rows.Scan(&h.ID, &h.SuratID, &oldStatus, &newStatus, &h.ChangedBy, &role, &h.Catatan, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if oldStatus != nil {
			st := model.SuratStatus(*oldStatus)
			h.OldStatus = &st
		}
		h.NewStatus = model.SuratStatus(newStatus)
		h.Role = model.Role(role)
		res = append(res, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// NextNomorSurat mengambil nomor urut surat berikutnya untuk tahun year.
func (r *PostgresRepository) NextNomorSurat(ctx context.Context, year int) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO nomor_surat_seq (tahun, nilai) VALUES ($1, 1)
		 ON CONFLICT (tahun) DO UPDATE SET nilai = nomor_surat_seq.nilai + 1
		 RETURNING nilai`,
		year,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next nomor surat: %w", err)
	}
	return n, nil
}
