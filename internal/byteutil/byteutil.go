// Package byteutil provides helpers for formatting byte quantities and
// reading configuration files.
package byteutil

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AppendFloat appends v rounded to prec decimal places to b. Trailing
// zeros are dropped, so 1.50 is appended as 1.5 and 2.00 as 2.
func AppendFloat(b []byte, v float64, prec int) []byte {
	return strconv.AppendFloat(b, Round(v, prec), 'f', -1, 64)
}

// Round returns v rounded half away from zero to prec decimal places.
func Round(v float64, prec int) float64 {
	if prec < 0 {
		return v
	}
	p := math.Pow10(prec)
	return math.Round(v*p) / p
}

// ToTitleString returns the title case representation of s, with any
// underscores replaced by spaces.
func ToTitleString(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
