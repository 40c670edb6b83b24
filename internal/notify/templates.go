package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// StatusData adalah data yang dirender ke pesan perubahan status surat.
type StatusData struct {
	NamaPemohon string
	SuratID     int64
	JenisSurat  string
	NoSurat     string
	Status      model.SuratStatus
	Catatan     string
	Kelurahan   string
}

// Message adalah satu pesan yang siap dikirim.
type Message struct {
	Subject string
	Body    string
}

var statusSubjects = map[model.SuratStatus]string{
	model.StatusSubmitted:       "Pengajuan surat diterima",
	model.StatusVerifiedByRT:    "Surat disetujui RT",
	model.StatusRejectedByRT:    "Surat ditolak RT",
	model.StatusVerifiedByStaff: "Surat diverifikasi staf kelurahan",
	model.StatusRejectedByStaff: "Surat ditolak staf kelurahan",
	model.StatusVerifiedByLurah: "Surat disetujui Lurah",
	model.StatusRejectedByLurah: "Surat ditolak Lurah",
	model.StatusIssued:          "Surat telah terbit",
}

var statusLines = map[model.SuratStatus]string{
	model.StatusSubmitted:       "pengajuan Anda sudah kami terima dan menunggu verifikasi RT.",
	model.StatusVerifiedByRT:    "pengajuan Anda telah disetujui RT dan diteruskan ke staf kelurahan.",
	model.StatusRejectedByRT:    "pengajuan Anda ditolak oleh RT.",
	model.StatusVerifiedByStaff: "pengajuan Anda telah diverifikasi staf kelurahan dan menunggu persetujuan Lurah.",
	model.StatusRejectedByStaff: "pengajuan Anda ditolak oleh staf kelurahan.",
	model.StatusVerifiedByLurah: "pengajuan Anda telah disetujui Lurah.",
	model.StatusRejectedByLurah: "pengajuan Anda ditolak oleh Lurah.",
	model.StatusIssued:          "surat Anda telah terbit dan dapat diunduh.",
}

var emailTmpl = template.Must(template.New("email").Parse(`<p>Yth. {{.NamaPemohon}},</p>
<p>{{.Line}}</p>
<table>
<tr><td>Nomor pengajuan</td><td>#{{.SuratID}}</td></tr>
<tr><td>Jenis surat</td><td>{{.JenisSurat}}</td></tr>
{{- if .NoSurat}}
<tr><td>Nomor surat</td><td>{{.NoSurat}}</td></tr>
{{- end}}
<tr><td>Status</td><td>{{.Status}}</td></tr>
</table>
{{- if .Catatan}}
<p>Catatan: {{.Catatan}}</p>
{{- end}}
<p>Salam,<br>{{.Kelurahan}}</p>
`))

// RenderStatusEmail merender surel perubahan status.
func RenderStatusEmail(d StatusData) (Message, error) {
	subject, ok := statusSubjects[d.Status]
	if !ok {
		return Message{}, fmt.Errorf("no template for status %q", d.Status)
	}

	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct {
		StatusData
		Line string
	}{d, statusLines[d.Status]})
	if err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}

	return Message{
		Subject: fmt.Sprintf("[%s] %s #%d", d.Kelurahan, subject, d.SuratID),
		Body:    buf.String(),
	}, nil
}

// RenderStatusWhatsApp merender pesan WhatsApp perubahan status.
func RenderStatusWhatsApp(d StatusData) (Message, error) {
	line, ok := statusLines[d.Status]
	if !ok {
		return Message{}, fmt.Errorf("no template for status %q", d.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, %s\n", d.NamaPemohon, line)
	fmt.Fprintf(&b, "Pengajuan #%d (%s)", d.SuratID, d.JenisSurat)
	if d.NoSurat != "" {
		fmt.Fprintf(&b, "\nNomor surat: %s", d.NoSurat)
	}
	if d.Catatan != "" {
		fmt.Fprintf(&b, "\nCatatan: %s", d.Catatan)
	}
	fmt.Fprintf(&b, "\n- %s", d.Kelurahan)

	return Message{Subject: statusSubjects[d.Status], Body: b.String()}, nil
}

// NormalizePhone mengubah nomor lokal 08xx menjadi format internasional 628xx.
// Nomor yang tidak berisi digit sama sekali menghasilkan string kosong.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	default:
		return digits
	}
}
