package meetings

import (
	"errors"
	"strings"
	"unicode/utf16"
)

const MaxNameLength = 50

var (
	ErrNamesRequired = errors.New("Host name and guest name are required")
	ErrNameTooLong   = errors.New("Names must be less than 50 characters")
	ErrCallRequired  = errors.New("callId is required by the configured platform")
)

// ValidateNames checks the raw names. Emptiness is judged after trimming,
// length on the untrimmed value in UTF-16 code units, the unit browsers
// count in.
func ValidateNames(hostName, guestName string) error {
	if strings.TrimSpace(hostName) == "" || strings.TrimSpace(guestName) == "" {
		return ErrNamesRequired
	}
	if nameLength(hostName) > MaxNameLength || nameLength(guestName) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func nameLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNamesRequired) || errors.Is(err, ErrNameTooLong) || errors.Is(err, ErrCallRequired)
}
