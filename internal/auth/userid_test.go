package auth

import (
	"strings"
	"testing"
)

func TestDeriveUserID(t *testing.T) {
	cases := []struct {
		prefix, name, want string
	}{
		{PrefixHost, "Jane Doe!", "host-jane-doe-"},
		{PrefixHost, "Ann Lee", "host-ann-lee"},
		{PrefixGuest, "Bob!", "guest-bob-"},
		{PrefixGuest, "O'Neil 2", "guest-o-neil-2"},
		{PrefixHost, " Ann", "host--ann"},
		{PrefixHost, "Zoë", "host-zo-"},
		{PrefixGuest, "Bob 😀", "guest-bob---"},
	}
	for _, tc := range cases {
		if got := DeriveUserID(tc.prefix, tc.name); got != tc.want {
			t.Fatalf("DeriveUserID(%q, %q) = %q, want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestDeriveUserIDCharset(t *testing.T) {
	got := DeriveUserID(PrefixGuest, "Ünïcødé & <tags>")
	for _, r := range strings.TrimPrefix(got, "guest-") {
		if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("unexpected rune %q in %q", r, got)
		}
	}
}

func TestRandomGuestID(t *testing.T) {
	id, err := RandomGuestID()
	if err != nil {
		t.Fatalf("guest id: %v", err)
	}
	if !strings.HasPrefix(id, "guest-") || len(id) != len("guest-")+6 {
		t.Fatalf("unexpected guest id %q", id)
	}
}
