package input

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// sniffSize is how much of an input is inspected by LooksBinary.
const sniffSize = 8192

// LooksBinary reports whether sample, in the input charset enc, is unlikely to be a text log:
// it holds a null byte or more than 30% control characters. Tab, newline, carriage return and
// ESC (colored logs) count as text.
//
// Bytes are classified by what they decode to. For Latin-9 and Latin-1 that makes 0x80-0x9F
// control characters and everything from 0xA0 up printable, while windows-1252 prints most of
// 0x80-0x9F. A nil enc means UTF-8, where invalid sequences count as control characters. Other
// multi-byte charsets are only checked for ASCII controls.
func LooksBinary(sample []byte, enc encoding.Encoding) bool {
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	chars, controls := 0, 0
	switch cm := enc.(type) {
	case nil:
		for len(sample) > 0 {
			r, size := utf8.DecodeRune(sample)
			sample = sample[size:]
			chars++
			if r == utf8.RuneError && size == 1 || isControl(r) {
				controls++
			}
		}
	case *charmap.Charmap:
		for _, b := range sample {
			chars++
			if isControl(cm.DecodeByte(b)) {
				controls++
			}
		}
	default:
		for _, b := range sample {
			chars++
			if b < utf8.RuneSelf && isControl(rune(b)) {
				controls++
			}
		}
	}

	return controls*10 > chars*3
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r', 0x1B:
		return false
	}
	return unicode.IsControl(r)
}
