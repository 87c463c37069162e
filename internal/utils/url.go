package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`(?:https?://|www\.)[^\s]+`)

var inviteHosts = []string{
	"chat.whatsapp.com",
	"wa.me",
	"whatsapp.com",
	"t.me",
	"telegram.me",
	"discord.gg",
}

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

func NormalizeHost(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}
	return host, nil
}

func IsInviteHost(host string) bool {
	host = strings.ToLower(host)
	for _, known := range inviteHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

func ContainsInviteLink(content string) bool {
	for _, raw := range ExtractURLs(content) {
		host, err := NormalizeHost(raw)
		if err != nil {
			continue
		}
		if IsInviteHost(host) {
			return true
		}
	}
	return containsBareInviteHost(content)
}

// containsBareInviteHost catches scheme-less links like
// "chat.whatsapp.com/ABC" that the URL regex does not extract. The
// host must sit on a label boundary so "notwhatsapp.com/x" stays
// clean.
func containsBareInviteHost(content string) bool {
	lower := strings.ToLower(content)
	for _, host := range inviteHosts {
		needle := host + "/"
		idx := 0
		for {
			i := strings.Index(lower[idx:], needle)
			if i < 0 {
				break
			}
			start := idx + i
			if start == 0 || !isHostByte(lower[start-1]) {
				return true
			}
			idx = start + len(needle)
		}
	}
	return false
}

func isHostByte(b byte) bool {
	return b == '.' || b == '-' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
