package filter

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// BinaryThreshold is the share of non-printable characters above which
// decoded content is treated as binary.
const BinaryThreshold = 0.3

// Decoded is the outcome of classifying raw file bytes.
type Decoded struct {
	Text   string
	Binary bool
	// Fallback is set when the bytes were not valid UTF-8 and were read as
	// ISO-8859-1 instead.
	Fallback bool
}

// Decode classifies content as text or binary. It accepts any byte sequence.
// Valid UTF-8 is returned unchanged so it can be emitted byte for byte.
func Decode(content []byte) Decoded {
	if bytes.IndexByte(content, 0) >= 0 {
		return Decoded{Binary: true}
	}

	var d Decoded
	if utf8.Valid(content) {
		d.Text = string(content)
	} else {
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
		if err != nil {
			return Decoded{Binary: true, Fallback: true}
		}
		d.Text = string(text)
		d.Fallback = true
	}

	if nonPrintableRatio(d.Text) > BinaryThreshold {
		return Decoded{Binary: true, Fallback: d.Fallback}
	}
	return d
}

func nonPrintableRatio(s string) float64 {
	var total, bad int
	for _, r := range s {
		total++
		if !isPrintable(r) {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

func isPrintable(r rune) bool {
	switch r {
	case '\n', '\r', '\t', '\f', '\v':
		return true
	}
	return unicode.IsPrint(r) || unicode.IsSpace(r)
}
