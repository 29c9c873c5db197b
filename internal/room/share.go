package room

import (
	"errors"
	"net/url"
	"strings"
)

type ShareChannel string

const (
	ShareWhatsApp ShareChannel = "whatsapp"
	ShareEmail    ShareChannel = "email"
)

var ErrUnknownShareChannel = errors.New("unknown share channel")

const (
	whatsAppBase = "https://wa.me/?text="
	mailtoBase   = "mailto:?subject=Join%20our%20meeting&body="
	emailPrefix  = "Click the link to join the meeting: "
)

// ShareURL builds the link opened for a share target.
func ShareURL(ch ShareChannel, link string) (string, error) {
	switch ch {
	case ShareWhatsApp:
		return whatsAppBase + escapeComponent(link), nil
	case ShareEmail:
		return mailtoBase + escapeComponent(emailPrefix+link), nil
	}
	return "", ErrUnknownShareChannel
}

// QueryEscape leaves ~ alone but escapes !'()* and uses + for spaces.
// Browsers' component encoding keeps those five and uses %20.
var componentFixer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentFixer.Replace(url.QueryEscape(s))
}
