package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

func TestRenderStatusEmail(t *testing.T) {
	msg, err := RenderStatusEmail(StatusData{
		NamaPemohon: "Budi <script>",
		SuratID:     7,
		JenisSurat:  "Surat Keterangan Domisili",
		Status:      model.StatusRejectedByRT,
		Catatan:     "dokumen tidak lengkap",
		Kelurahan:   "Kelurahan Sukamaju",
	})
	require.NoError(t, err)

	assert.Equal(t, "[Kelurahan Sukamaju] Surat ditolak RT #7", msg.Subject)
	assert.Contains(t, msg.Body, "dokumen tidak lengkap")
	assert.Contains(t, msg.Body, "Budi &lt;script&gt;")
	assert.NotContains(t, msg.Body, "Nomor surat")
}

func TestRenderStatusEmail_IncludesNoSurat(t *testing.T) {
	msg, err := RenderStatusEmail(StatusData{
		SuratID: 1,
		NoSurat: "001/SKD/X/2026",
		Status:  model.StatusVerifiedByStaff,
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "001/SKD/X/2026")
}

func TestRenderStatus_UnknownStatus(t *testing.T) {
	_, err := RenderStatusEmail(StatusData{Status: "BOGUS"})
	assert.Error(t, err)

	_, err = RenderStatusWhatsApp(StatusData{Status: "BOGUS"})
	assert.Error(t, err)
}

func TestRenderStatusWhatsApp(t *testing.T) {
	msg, err := RenderStatusWhatsApp(StatusData{
		NamaPemohon: "Siti",
		SuratID:     3,
		JenisSurat:  "SKTM",
		Status:      model.StatusIssued,
		Kelurahan:   "Kelurahan Sukamaju",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Halo Siti")
	assert.Contains(t, msg.Body, "#3 (SKTM)")
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"081234567890", "6281234567890"},
		{"+62 812-3456-7890", "6281234567890"},
		{"6281234", "6281234"},
		{"", ""},
		{"abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}
