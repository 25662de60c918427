package domain

import (
	"regexp"
	"strings"
)

var barcodePattern = regexp.MustCompile(`^\d{6,}$`)

// LooksLikeBarcode reports whether text is six or more digits and nothing
// else once surrounding space is trimmed.
func LooksLikeBarcode(text string) bool {
	return barcodePattern.MatchString(strings.TrimSpace(text))
}
