// Package validation berisi fungsi validasi data masukan.
package validation

import "strconv"

const identityNumberLength = 16

// IsValidNIK memeriksa format Nomor Induk Kependudukan: 16 digit dengan
// tanggal lahir (DDMMYY, tanggal +40 untuk perempuan) pada digit 7-12.
func IsValidNIK(nik string) bool {
	if !isDigits(nik, identityNumberLength) {
		return false
	}

	day, _ := strconv.Atoi(nik[6:8])
	month, _ := strconv.Atoi(nik[8:10])

	if day > 40 {
		day -= 40
	}
	if day < 1 || day > 31 {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}

	return nik[:6] != "000000"
}

// IsValidNoKK memeriksa format nomor Kartu Keluarga: 16 digit, kode wilayah bukan nol.
func IsValidNoKK(noKK string) bool {
	if !isDigits(noKK, identityNumberLength) {
		return false
	}
	return noKK[:6] != "000000"
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
