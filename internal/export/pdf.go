package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// LetterHead berisi identitas kelurahan untuk kop surat.
type LetterHead struct {
	Nama      string
	Kecamatan string
	Kota      string
	Alamat    string
	NamaLurah string
}

var bulan = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// TanggalIndonesia memformat t seperti "5 Januari 2026".
func TanggalIndonesia(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), bulan[t.Month()-1], t.Year())
}

// WriteSuratPDF mencetak surat yang telah terbit.
func WriteSuratPDF(w io.Writer, s *model.Surat, head LetterHead) error {
	if s.Status != model.StatusIssued || s.NoSurat == nil {
		return fmt.Errorf("surat %d is not issued", s.ID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(25, 20, 25)
	pdf.SetTitle(s.JenisSuratNama, true)
	pdf.SetCreator("SISURAT", true)
	if s.IssuedAt != nil {
		pdf.SetCreationDate(*s.IssuedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont("Arial", "B", 12)
	if head.Kota != "" {
		pdf.CellFormat(width, 6, tr(strings.ToUpper("Pemerintah "+head.Kota)), "", 1, "C", false, 0, "")
	}
	if head.Kecamatan != "" {
		pdf.CellFormat(width, 6, tr(strings.ToUpper("Kecamatan "+head.Kecamatan)), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(width, 7, tr(strings.ToUpper(head.Nama)), "", 1, "C", false, 0, "")
	if head.Alamat != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(width, 5, tr(head.Alamat), "", 1, "C", false, 0, "")
	}
	y := pdf.GetY() + 2
	pdf.SetLineWidth(0.8)
	pdf.Line(left, y, pageW-right, y)
	pdf.Ln(8)

	pdf.SetFont("Arial", "BU", 12)
	pdf.CellFormat(width, 6, tr(strings.ToUpper(s.JenisSuratNama)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(width, 6, tr("Nomor: "+*s.NoSurat), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.MultiCell(width, 6, tr("Yang bertanda tangan di bawah ini, Lurah "+head.Nama+", menerangkan bahwa:"), "", "L", false)
	pdf.Ln(2)

	field := func(label, value string) {
		pdf.CellFormat(45, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(5, 6, ":", "", 0, "L", false, 0, "")
		pdf.MultiCell(width-50, 6, tr(value), "", "L", false)
	}
	field("Nama", s.NamaPemohon)
	field("NIK", s.NIKPemohon)
	field("Alamat", s.AlamatPemohon)
	field("Keperluan", s.Keperluan)
	pdf.Ln(4)

	pdf.MultiCell(width, 6, tr("Demikian surat keterangan ini dibuat untuk dipergunakan sebagaimana mestinya."), "", "L", false)
	pdf.Ln(12)

	issued := s.UpdatedAt
	if s.IssuedAt != nil {
		issued = *s.IssuedAt
	}
	sigX := left + width/2 + 10
	sigW := width/2 - 10
	place := head.Nama
	if head.Kota != "" {
		place = head.Kota
	}
	pdf.SetX(sigX)
	pdf.CellFormat(sigW, 6, tr(place+", "+TanggalIndonesia(issued)), "", 1, "C", false, 0, "")
	pdf.SetX(sigX)
	pdf.CellFormat(sigW, 6, tr("Lurah "+head.Nama), "", 1, "C", false, 0, "")
	pdf.Ln(20)
	pdf.SetX(sigX)
	pdf.SetFont("Arial", "BU", 11)
	pdf.CellFormat(sigW, 6, tr(head.NamaLurah), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
