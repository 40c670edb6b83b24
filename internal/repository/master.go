package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// ListJenisSurat mengembalikan katalog jenis surat.
func (r *PostgresRepository) ListJenisSurat(ctx context.Context, onlyActive bool) ([]model.JenisSurat, error) {
	query := `SELECT id, kode, nama, deskripsi, aktif, created_at FROM jenis_surat`
	if onlyActive {
		query += ` WHERE aktif`
	}
	query += ` ORDER BY kode`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select jenis surat: %w", err)
	}
	defer rows.Close()

	var res []model.JenisSurat
	for rows.Next() {
		var j model.JenisSurat
		if err := rows.Scan(&j.ID, &j.Kode, &j.Nama, &j.Deskripsi, &j.Aktif, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan jenis surat: %w", err)
		}
		res = append(res, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetJenisSurat mengembalikan satu jenis surat.
func (r *PostgresRepository) GetJenisSurat(ctx context.Context, id int64) (*model.JenisSurat, error) {
	var j model.JenisSurat
	err := r.pool.QueryRow(ctx,
		`SELECT id, kode, nama, deskripsi, aktif, created_at FROM jenis_surat WHERE id = $1`, id,
	).Scan(&j.ID, &j.Kode, &j.Nama, &j.Deskripsi, &j.Aktif, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get jenis surat: %w", err)
	}
	return &j, nil
}

// CreateJenisSurat menyimpan jenis surat baru.
func (r *PostgresRepository) CreateJenisSurat(ctx context.Context, j *model.JenisSurat) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO jenis_surat (kode, nama, deskripsi, aktif) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		j.Kode, j.Nama, j.Deskripsi, j.Aktif,
	).Scan(&j.ID, &j.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: kode %s", ErrDuplicate, j.Kode)
		}
		return fmt.Errorf("create jenis surat: %w", err)
	}
	return nil
}

// UpdateJenisSurat memperbarui jenis surat.
func (r *PostgresRepository) UpdateJenisSurat(ctx context.Context, j *model.JenisSurat) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jenis_surat SET kode = $2, nama = $3, deskripsi = $4, aktif = $5 WHERE id = $1`,
		j.ID, j.Kode, j.Nama, j.Deskripsi, j.Aktif,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: kode %s", ErrDuplicate, j.Kode)
		}
		return fmt.Errorf("update jenis surat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJenisSurat menghapus jenis surat yang belum pernah diajukan.
func (r *PostgresRepository) DeleteJenisSurat(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jenis_surat WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete jenis surat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const kkColumns = `id, no_kk, kepala_keluarga, alamat, rt, rw, created_at`

func scanKK(row rowScanner) (*model.KartuKeluarga, error) {
	var kk model.KartuKeluarga
	if err := row.Scan(&kk.ID, &kk.NoKK, &kk.KepalaKeluarga, &kk.Alamat, &kk.RT, &kk.RW, &kk.CreatedAt); err != nil {
		return nil, err
	}
	return &kk, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike membuat % dan _ pada kata kunci dicocokkan apa adanya.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListKartuKeluarga mengembalikan data KK, opsional dicari berdasarkan nomor atau kepala keluarga.
func (r *PostgresRepository) ListKartuKeluarga(ctx context.Context, q string) ([]model.KartuKeluarga, error) {
	query := `SELECT ` + kkColumns + ` FROM kartu_keluarga`
	var args []any
	if q != "" {
		query += ` WHERE no_kk LIKE $1 ESCAPE '\' OR kepala_keluarga ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(q)+"%")
	}
	query += ` ORDER BY no_kk`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select kartu keluarga: %w", err)
	}
	defer rows.Close()

	var res []model.KartuKeluarga
	for rows.Next() {
		kk, err := scanKK(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kartu keluarga: %w", err)
		}
		res = append(res, *kk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetKartuKeluarga mengembalikan satu KK.
func (r *PostgresRepository) GetKartuKeluarga(ctx context.Context, id int64) (*model.KartuKeluarga, error) {
	kk, err := scanKK(r.pool.QueryRow(ctx, `SELECT `+kkColumns+` FROM kartu_keluarga WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get kartu keluarga: %w", err)
	}
	return kk, nil
}

// CreateKartuKeluarga menyimpan KK baru.
func (r *PostgresRepository) CreateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO kartu_keluarga (no_kk, kepala_keluarga, alamat, rt, rw)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		kk.NoKK, kk.KepalaKeluarga, kk.Alamat, kk.RT, kk.RW,
	).Scan(&kk.ID, &kk.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: no kk %s", ErrDuplicate, kk.NoKK)
		}
		return fmt.Errorf("create kartu keluarga: %w", err)
	}
	return nil
}

// UpdateKartuKeluarga memperbarui KK.
func (r *PostgresRepository) UpdateKartuKeluarga(ctx context.Context, kk *model.KartuKeluarga) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE kartu_keluarga SET no_kk = $2, kepala_keluarga = $3, alamat = $4, rt = $5, rw = $6
		 WHERE id = $1`,
		kk.ID, kk.NoKK, kk.KepalaKeluarga, kk.Alamat, kk.RT, kk.RW,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: no kk %s", ErrDuplicate, kk.NoKK)
		}
		return fmt.Errorf("update kartu keluarga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteKartuKeluarga menghapus KK. Profil warga yang merujuknya dilepas.
func (r *PostgresRepository) DeleteKartuKeluarga(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM kartu_keluarga WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete kartu keluarga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportKartuKeluarga menyimpan banyak KK sekaligus. Nomor KK yang sudah ada
// dilewati; hasilnya adalah nomor KK yang benar-benar tersimpan.
func (r *PostgresRepository) ImportKartuKeluarga(ctx context.Context, items []model.KartuKeluarga) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, kk := range items {
		batch.Queue(
			`INSERT INTO kartu_keluarga (no_kk, kepala_keluarga, alamat, rt, rw)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (no_kk) DO NOTHING
			 RETURNING no_kk`,
			kk.NoKK, kk.KepalaKeluarga, kk.Alamat, kk.RT, kk.RW,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted []string
	for range items {
		var noKK string
		err := br.QueryRow().Scan(&noKK)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			br.Close()
			return nil, fmt.Errorf("import kartu keluarga: %w", err)
		}
		inserted = append(inserted, noKK)
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}
