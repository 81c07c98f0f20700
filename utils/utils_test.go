package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateNationalID(t *testing.T) {
	assert.True(t, ValidateNationalID("0499370899"))
	assert.True(t, ValidateNationalID(" 0084575948 "))
	assert.True(t, ValidateNationalID("۰۰۱۳۵۴۲۴۱۹"))
	assert.False(t, ValidateNationalID("1234567890"))
	assert.False(t, ValidateNationalID("1111111111"))
	assert.False(t, ValidateNationalID("049937089"))
	assert.False(t, ValidateNationalID("04993708x9"))
}

func TestValidateMobileAndEmail(t *testing.T) {
	assert.True(t, ValidateMobile("09121234567"))
	assert.True(t, ValidateMobile("۰۹۱۲۱۲۳۴۵۶۷"))
	assert.False(t, ValidateMobile("9121234567"))
	assert.True(t, ValidateEmail("someone@example.com"))
	assert.False(t, ValidateEmail("someone@"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_file.pdf", SanitizeFilename("my file.pdf"))
	assert.Equal(t, "evil.exe", SanitizeFilename(`C:\temp\evil.exe`))
	assert.Equal(t, "", SanitizeFilename(".."))
}

func TestGregorianToJalali(t *testing.T) {
	cases := []struct {
		gy, gm, gd int
		jy, jm, jd int
	}{
		{2024, 3, 20, 1403, 1, 1},
		{2023, 3, 21, 1402, 1, 1},
		{2025, 10, 14, 1404, 7, 22},
		{2024, 12, 31, 1403, 10, 11},
	}
	for _, c := range cases {
		jy, jm, jd := GregorianToJalali(c.gy, c.gm, c.gd)
		assert.Equal(t, []int{c.jy, c.jm, c.jd}, []int{jy, jm, jd}, "%d-%d-%d", c.gy, c.gm, c.gd)
	}
}

func TestFormatJalaliDate(t *testing.T) {
	day := time.Date(2024, 3, 20, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "1 فروردین 1403", FormatJalaliDate(day))
	assert.Equal(t, "1403/01/01", FormatJalaliNumeric(day))
	assert.Equal(t, "", FormatJalaliDatePtr(nil))
	assert.Equal(t, "۱۴۰۳", ToPersianDigits("1403"))
}
