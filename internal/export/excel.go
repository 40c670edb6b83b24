// Package export menghasilkan berkas Excel dan PDF untuk laporan, impor
// data KK, dan cetak surat.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/validation"
)

const (
	kkSheet     = "KartuKeluarga"
	suratSheet  = "Surat"
	ringkasan   = "Ringkasan"
	textNumFmt  = 49
	dateLayout  = "02-01-2006 15:04"
	maxImportKK = 5000
)

// KKHeader adalah urutan kolom pada templat impor KK.
var KKHeader = []string{"No KK", "Kepala Keluarga", "Alamat", "RT", "RW"}

// RowError menjelaskan baris impor yang dilewati.
type RowError struct {
	Row     int    `json:"row"`
	NoKK    string `json:"noKk,omitempty"`
	Message string `json:"message"`
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// WriteKKTemplate menulis templat kosong untuk impor data KK.
func WriteKKTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", kkSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, kkSheet, KKHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	text, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
	if err != nil {
		return fmt.Errorf("text style: %w", err)
	}
	if err := f.SetColStyle(kkSheet, "A", text); err != nil {
		return fmt.Errorf("set column style: %w", err)
	}
	if err := f.SetColWidth(kkSheet, "A", "C", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadKKImport membaca lembar pertama berkas impor KK. Baris yang tidak
// valid atau nomor KK yang berulang dalam berkas dilaporkan sebagai RowError.
func ReadKKImport(r io.Reader) ([]model.KartuKeluarga, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) > maxImportKK+1 {
		return nil, nil, fmt.Errorf("too many rows: %d", len(rows)-1)
	}

	var (
		items   []model.KartuKeluarga
		rowErrs []RowError
		seen    = make(map[string]int)
	)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		line := i + 1
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		kk := model.KartuKeluarga{
			NoKK:           cell(0),
			KepalaKeluarga: cell(1),
			Alamat:         cell(2),
			RT:             cell(3),
			RW:             cell(4),
		}
		if kk.NoKK == "" && kk.KepalaKeluarga == "" {
			continue
		}

		switch {
		case !validation.IsValidNoKK(kk.NoKK):
			rowErrs = append(rowErrs, RowError{Row: line, NoKK: kk.NoKK, Message: "nomor KK tidak valid"})
			continue
		case kk.KepalaKeluarga == "":
			rowErrs = append(rowErrs, RowError{Row: line, NoKK: kk.NoKK, Message: "kepala keluarga wajib diisi"})
			continue
		}
		if prev, ok := seen[kk.NoKK]; ok {
			rowErrs = append(rowErrs, RowError{Row: line, NoKK: kk.NoKK, Message: fmt.Sprintf("duplikat dengan baris %d", prev)})
			continue
		}
		seen[kk.NoKK] = line
		items = append(items, kk)
	}

	return items, rowErrs, nil
}

// SuratReportHeader adalah urutan kolom laporan surat.
var SuratReportHeader = []string{
	"ID", "No Surat", "Jenis Surat", "Nama Pemohon", "NIK", "Keperluan", "Status", "Tanggal Pengajuan", "Terbit",
}

// WriteSuratReport menulis laporan surat beserta lembar ringkasan per status.
func WriteSuratReport(w io.Writer, items []model.Surat) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", suratSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, suratSheet, SuratReportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	counts := make(map[model.SuratStatus]int)
	for i, s := range items {
		counts[s.Status]++

		noSurat, issued := "", ""
		if s.NoSurat != nil {
			noSurat = *s.NoSurat
		}
		if s.IssuedAt != nil {
			issued = s.IssuedAt.Format(dateLayout)
		}
		row := []any{
			s.ID, noSurat, s.JenisSuratNama, s.NamaPemohon, s.NIKPemohon, s.Keperluan,
			string(s.Status), s.TanggalPengajuan.Format(dateLayout), issued,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(suratSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(suratSheet, "B", "H", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(ringkasan); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeHeader(f, ringkasan, []string{"Status", "Jumlah"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, st := range model.AllStatuses() {
		row := []any{string(st), counts[st]}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ringkasan, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	totalCell, err := excelize.CoordinatesToCellName(1, len(model.AllStatuses())+2)
	if err != nil {
		return err
	}
	total := []any{"TOTAL", len(items)}
	if err := f.SetSheetRow(ringkasan, totalCell, &total); err != nil {
		return fmt.Errorf("write total: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
