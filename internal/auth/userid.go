package auth

import (
	"strings"
	"unicode/utf16"

	"meeting-platform/pkg/utils"
)

const (
	PrefixHost  = "host"
	PrefixGuest = "guest"
)

// DeriveUserID turns a display name into a platform user id: "{prefix}-{slug}"
// where the slug is the lower-cased name with every UTF-16 code unit outside
// [a-z0-9] replaced by '-', so an astral-plane emoji becomes "--". Whitespace
// is not trimmed first, so " Ann" and "Ann" differ.
func DeriveUserID(prefix, name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(prefix) + 1 + len(lower))
	b.WriteString(prefix)
	b.WriteByte('-')
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteString(strings.Repeat("-", utf16Len(r)))
	}
	return b.String()
}

// RandomGuestID is used when a caller has neither a session nor a name.
func RandomGuestID() (string, error) {
	suffix, err := utils.RandomBase36(6)
	if err != nil {
		return "", err
	}
	return PrefixGuest + "-" + suffix, nil
}

// utf16Len is the number of UTF-16 code units r encodes to. Invalid runes
// count as one, matching the replacement character.
func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
