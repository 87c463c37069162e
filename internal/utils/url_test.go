package utils

import "testing"

func TestNormalizeHost(t *testing.T) {
	host, err := NormalizeHost("https://Chat.WhatsApp.com/ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "chat.whatsapp.com" {
		t.Fatalf("unexpected host: %s", host)
	}

	host, err = NormalizeHost("www.t.me/group")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "www.t.me" {
		t.Fatalf("unexpected host: %s", host)
	}
}

func TestIsInviteHost(t *testing.T) {
	if !IsInviteHost("chat.whatsapp.com") {
		t.Fatalf("expected invite host")
	}
	if !IsInviteHost("www.t.me") {
		t.Fatalf("expected suffix match")
	}
	if IsInviteHost("example.com") {
		t.Fatalf("unexpected invite host")
	}
	if IsInviteHost("notwhatsapp.com") {
		t.Fatalf("suffix match must respect label boundary")
	}
}

func TestContainsInviteLink(t *testing.T) {
	if !ContainsInviteLink("join https://chat.whatsapp.com/ABC123") {
		t.Fatalf("expected invite link")
	}
	if ContainsInviteLink("read https://example.com/page") {
		t.Fatalf("unexpected invite link")
	}
	if ContainsInviteLink("no links here") {
		t.Fatalf("unexpected invite link in plain text")
	}
}

func TestContainsInviteLinkWithoutScheme(t *testing.T) {
	if !ContainsInviteLink("join chat.whatsapp.com/ABC123") {
		t.Fatalf("expected scheme-less invite link")
	}
	if !ContainsInviteLink("join wa.me/1234567") {
		t.Fatalf("expected scheme-less wa.me link")
	}
	if !ContainsInviteLink("my group T.ME/somegroup here") {
		t.Fatalf("expected case-insensitive bare host")
	}
	if ContainsInviteLink("see notwhatsapp.com/page") {
		t.Fatalf("bare host must respect label boundary")
	}
	if ContainsInviteLink("mention of wa.me without a path") {
		t.Fatalf("bare host without a path is not a link")
	}
}
