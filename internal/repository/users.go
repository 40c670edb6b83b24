package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

const userColumns = `id, username, email, nama, no_hp, password_hash, role, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Nama, &u.NoHP, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// CreateUser menyimpan pengguna baru dan mengisi ID serta CreatedAt.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, nama, no_hp, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.Nama, u.NoHP, u.PasswordHash, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: username %s", ErrDuplicate, u.Username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateWargaUser menyimpan akun WARGA beserta profil penduduknya dalam satu transaksi.
func (r *PostgresRepository) CreateWargaUser(ctx context.Context, u *model.User, w *model.Warga) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, nama, no_hp, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.Nama, u.NoHP, u.PasswordHash, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: username %s", ErrDuplicate, u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	w.UserID = u.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO warga (user_id, kartu_keluarga_id, nik, nama_lengkap, tempat_lahir,
		                    tanggal_lahir, jenis_kelamin, pekerjaan, alamat)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		w.UserID, w.KartuKeluargaID, w.NIK, w.NamaLengkap, w.TempatLahir,
		w.TanggalLahir, w.JenisKelamin, w.Pekerjaan, w.Alamat,
	).Scan(&w.ID)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: nik %s", ErrDuplicate, w.NIK)
		}
		if foreignKeyViolation(err) {
			return fmt.Errorf("%w: kartu keluarga", ErrNotFound)
		}
		return fmt.Errorf("insert warga: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetUserByID mengembalikan pengguna berdasarkan ID.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername mengembalikan pengguna berdasarkan username.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers mengembalikan daftar pengguna, opsional disaring berdasarkan peran.
func (r *PostgresRepository) ListUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, string(role))
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateUser memperbarui data pengguna. Hash sandi hanya diganti jika tidak kosong.
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET email = $2, nama = $3, no_hp = $4, role = $5,
		     password_hash = CASE WHEN length($6::bytea) > 0 THEN $6::bytea ELSE password_hash END
		 WHERE id = $1`,
		u.ID, u.Email, u.Nama, u.NoHP, string(u.Role), u.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser menghapus pengguna yang belum memiliki surat.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const wargaColumns = `id, user_id, kartu_keluarga_id, nik, nama_lengkap, tempat_lahir,
	tanggal_lahir, jenis_kelamin, pekerjaan, alamat`

// GetWargaByUserID mengembalikan profil penduduk milik pengguna.
func (r *PostgresRepository) GetWargaByUserID(ctx context.Context, userID int64) (*model.Warga, error) {
	var w model.Warga
	err := r.pool.QueryRow(ctx, `SELECT `+wargaColumns+` FROM warga WHERE user_id = $1`, userID).Scan(
		&w.ID, &w.UserID, &w.KartuKeluargaID, &w.NIK, &w.NamaLengkap, &w.TempatLahir,
		&w.TanggalLahir, &w.JenisKelamin, &w.Pekerjaan, &w.Alamat,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get warga: %w", err)
	}
	return &w, nil
}

// UpdateWargaProfil memperbarui kontak akun u dan profil penduduk w dalam
// satu transaksi. NIK tidak ikut diubah.
func (r *PostgresRepository) UpdateWargaProfil(ctx context.Context, u *model.User, w *model.Warga) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE users SET email = $2, nama = $3, no_hp = $4 WHERE id = $1`,
		u.ID, u.Email, u.Nama, u.NoHP,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	err = tx.QueryRow(ctx,
		`UPDATE warga
		 SET kartu_keluarga_id = $2, nama_lengkap = $3, tempat_lahir = $4, tanggal_lahir = $5,
		     jenis_kelamin = $6, pekerjaan = $7, alamat = $8
		 WHERE user_id = $1
		 RETURNING id, nik`,
		u.ID, w.KartuKeluargaID, w.NamaLengkap, w.TempatLahir, w.TanggalLahir,
		w.JenisKelamin, w.Pekerjaan, w.Alamat,
	).Scan(&w.ID, &w.NIK)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if foreignKeyViolation(err) {
			return fmt.Errorf("%w: kartu keluarga", ErrNotFound)
		}
		return fmt.Errorf("update warga: %w", err)
	}
	w.UserID = u.ID

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
