package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

func TestWriteSuratPDF(t *testing.T) {
	no := "123/2025"
	issued := time.Date(2025, 8, 17, 10, 0, 0, 0, time.UTC)
	s := &model.Surat{
		ID:             1,
		NoSurat:        &no,
		JenisSuratNama: "Surat Keterangan Domisili",
		NamaPemohon:    "Budi Santoso",
		NIKPemohon:     "3273010101900001",
		AlamatPemohon:  "Jl. Melati No. 1",
		Keperluan:      "Pembukaan rekening",
		Status:         model.StatusIssued,
		IssuedAt:       &issued,
	}

	var buf bytes.Buffer
	err := WriteSuratPDF(&buf, s, LetterHead{Nama: "Kelurahan Sukamaju", Kota: "Kota Bandung", NamaLurah: "Drs. Ahmad"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteSuratPDF_NotIssued(t *testing.T) {
	s := &model.Surat{ID: 2, Status: model.StatusVerifiedByLurah}

	var buf bytes.Buffer
	assert.Error(t, WriteSuratPDF(&buf, s, LetterHead{}))
	assert.Zero(t, buf.Len())
}

func TestTanggalIndonesia(t *testing.T) {
	assert.Equal(t, "17 Agustus 1945", TanggalIndonesia(time.Date(1945, 8, 17, 0, 0, 0, 0, time.UTC)))
}
