package utils

import (
	"fmt"
	"strings"
	"time"
)

var jalaliMonths = []string{
	"فروردین",
	"اردیبهشت",
	"خرداد",
	"تیر",
	"مرداد",
	"شهریور",
	"مهر",
	"آبان",
	"آذر",
	"دی",
	"بهمن",
	"اسفند",
}

// GregorianToJalali converts a Gregorian date to the Solar Hijri calendar.
func GregorianToJalali(gy, gm, gd int) (jy, jm, jd int) {
	gdm := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + gdm[gm-1]
	jy = -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

// FormatJalaliDate returns t as "day month year" with the Persian month name.
func FormatJalaliDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(time.Local)
	jy, jm, jd := GregorianToJalali(local.Year(), int(local.Month()), local.Day())
	return fmt.Sprintf("%d %s %d", jd, jalaliMonths[jm-1], jy)
}

// FormatJalaliDatePtr returns FormatJalaliDate for pointer values.
func FormatJalaliDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatJalaliDate(*t)
}

// FormatJalaliNumeric returns t as yyyy/mm/dd in the Solar Hijri calendar.
func FormatJalaliNumeric(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(time.Local)
	jy, jm, jd := GregorianToJalali(local.Year(), int(local.Month()), local.Day())
	return fmt.Sprintf("%04d/%02d/%02d", jy, jm, jd)
}

var persianDigitReplacer = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// ToPersianDigits converts ASCII digits to Persian digits.
func ToPersianDigits(s string) string {
	return persianDigitReplacer.Replace(s)
}
