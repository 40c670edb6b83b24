package repository

import (
	"context"
	"fmt"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

const penilaianConstraint = "penilaian_surat_tahap_key"

// CreatePenilaian menyimpan penilaian satu tahap. Tahap yang sudah dinilai
// menghasilkan ErrDuplicateRating.
func (r *PostgresRepository) CreatePenilaian(ctx context.Context, p *model.Penilaian) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO penilaian (surat_id, tahap_role, rating, deskripsi, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.SuratID, string(p.TahapRole), p.Rating, p.Deskripsi, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == penilaianConstraint {
			return ErrDuplicateRating
		}
		if foreignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create penilaian: %w", err)
	}
	return nil
}

// ListPenilaian mengembalikan penilaian sebuah surat.
func (r *PostgresRepository) ListPenilaian(ctx context.Context, suratID int64) ([]model.Penilaian, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, surat_id, tahap_role, rating, deskripsi, created_at
		 FROM penilaian
		 WHERE surat_id = $1
		 ORDER BY created_at, id`,
		suratID,
	)
	if err != nil {
		return nil, fmt.Errorf("select penilaian: %w", err)
	}
	defer rows.Close()

	var res []model.Penilaian
	for rows.Next() {
		var (
			p    model.Penilaian
			role string
		)
		if err := rows.Scan(&p.ID, &p.SuratID, &role, &p.Rating, &p.Deskripsi, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan penilaian: %w", err)
		}
		p.TahapRole = model.Role(role)
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// RatingSummary menghitung jumlah dan rata-rata penilaian per tahap.
func (r *PostgresRepository) RatingSummary(ctx context.Context) ([]model.RatingSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tahap_role, COUNT(*), COALESCE(AVG(rating), 0)::float8
		 FROM penilaian
		 GROUP BY tahap_role
		 ORDER BY tahap_role`,
	)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	defer rows.Close()

	var res []model.RatingSummary
	for rows.Next() {
		var (
			s    model.RatingSummary
			role string
		)
		if err := rows.Scan(&role, &s.Jumlah, &s.RataRata); err != nil {
			return nil, fmt.Errorf("scan rating summary: %w", err)
		}
		s.TahapRole = model.Role(role)
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
