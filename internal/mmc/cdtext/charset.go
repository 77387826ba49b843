package cdtext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Charset is the character code of a block as given by its size information.
type Charset uint8

const (
	CharsetISO8859_1 Charset = 0x00
	CharsetASCII     Charset = 0x01
	CharsetMSJIS     Charset = 0x80
	CharsetKorean    Charset = 0x81
	CharsetMandarin  Charset = 0x82
)

func (c Charset) String() string {
	switch c {
	case CharsetISO8859_1:
		return "ISO-8859-1"
	case CharsetASCII:
		return "ASCII"
	case CharsetMSJIS:
		return "Shift_JIS"
	case CharsetKorean:
		return "EUC-KR"
	case CharsetMandarin:
		return "GBK"
	default:
		return "unknown"
	}
}

// MarshalText renders the charset name in reports.
func (c Charset) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c Charset) encoding() encoding.Encoding {
	switch c {
	case CharsetISO8859_1:
		return charmap.ISO8859_1
	case CharsetMSJIS:
		return japanese.ShiftJIS
	case CharsetKorean:
		return korean.EUCKR
	case CharsetMandarin:
		return simplifiedchinese.GBK
	default:
		return nil
	}
}

// toUTF8 converts raw text in charset c. Bytes that cannot be mapped are
// replaced, never dropped.
func toUTF8(c Charset, raw []byte) string {
	enc := c.encoding()
	if enc == nil {
		return asciiOnly(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) {
		return asciiOnly(raw)
	}
	return string(out)
}

func asciiOnly(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}
