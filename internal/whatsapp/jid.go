package whatsapp

import (
	"fmt"
	"strings"
)

const (
	DefaultUserServer = "s.whatsapp.net"
	GroupServer       = "g.us"
	LIDServer         = "lid"
	BroadcastServer   = "broadcast"
	NewsletterServer  = "newsletter"
	legacyUserServer  = "c.us"
)

// JID identifies a WhatsApp user, group, or channel as user@server.
type JID string

func (j JID) User() string {
	user, _, _ := strings.Cut(string(j), "@")
	return user
}

func (j JID) Server() string {
	_, server, _ := strings.Cut(string(j), "@")
	return server
}

func (j JID) IsGroup() bool { return j.Server() == GroupServer }

func (j JID) String() string { return string(j) }

// ParseJID accepts a full JID or a bare phone number (digits, optional
// leading +). Phone numbers become user JIDs on the default server, and
// legacy c.us JIDs are normalized to it.
func ParseJID(s string) (JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty jid")
	}

	user, server, found := strings.Cut(s, "@")
	if !found {
		phone := strings.TrimPrefix(s, "+")
		if !isDigits(phone) {
			return "", fmt.Errorf("invalid jid %q: expected phone number or user@server", s)
		}
		return JID(phone + "@" + DefaultUserServer), nil
	}

	// device suffix (user:device) is kept as part of the user
	if user == "" {
		return "", fmt.Errorf("invalid jid %q: empty user", s)
	}

	switch server {
	case legacyUserServer:
		server = DefaultUserServer
	case DefaultUserServer, GroupServer, LIDServer, BroadcastServer, NewsletterServer:
	default:
		return "", fmt.Errorf("invalid jid %q: unknown server %q", s, server)
	}
	return JID(user + "@" + server), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
