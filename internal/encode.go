package internal

import "unicode/utf16"

// Style selects the separators used when encoding a response.
type Style int

const (
	// SpacedStyle writes ", " between members and ": " after keys.
	SpacedStyle Style = iota
	CompactStyle
)

func (s Style) separators() (item, key string) {
	if s == CompactStyle {
		return ",", ":"
	}
	return ", ", ": "
}

// AppendJSON appends the JSON encoding of r to b. Strings are escaped to
// printable ASCII in both styles.
func (r *Response) AppendJSON(b []byte, style Style) []byte {
	itemSep, keySep := style.separators()
	b = append(b, '{')
	first := true
	r.each(func(handle string, rec Record) {
		if !first {
			b = append(b, itemSep...)
		}
		first = false
		b = appendString(b, handle)
		b = append(b, keySep...)
		b = append(b, '{')
		b = appendString(b, "value")
		b = append(b, keySep...)
		b = appendString(b, rec.Value)
		if rec.Failed() {
			b = append(b, itemSep...)
			b = appendString(b, "error")
			b = append(b, keySep...)
			b = appendString(b, rec.Error)
		}
		b = append(b, '}')
	})
	return append(b, '}')
}

const hexDigits = "0123456789abcdef"

func appendString(b []byte, s string) []byte {
	b = append(b, '"')
	for _, c := range s {
		switch c {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		default:
			switch {
			case c >= ' ' && c <= '~':
				b = append(b, byte(c))
			case c > 0xffff:
				r1, r2 := utf16.EncodeRune(c)
				b = appendUnicodeEscape(b, r1)
				b = appendUnicodeEscape(b, r2)
			default:
				b = appendUnicodeEscape(b, c)
			}
		}
	}
	return append(b, '"')
}

func appendUnicodeEscape(b []byte, c rune) []byte {
	return append(b, '\\', 'u',
		hexDigits[c>>12&0xf], hexDigits[c>>8&0xf], hexDigits[c>>4&0xf], hexDigits[c&0xf])
}
