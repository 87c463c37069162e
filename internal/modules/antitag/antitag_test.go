package antitag

import (
	"testing"

	"wasentry/internal/moderation"
)

func TestDetectTagThreshold(t *testing.T) {
	cfg := Config{BaseConfig: moderation.BaseConfig{Enabled: true}}

	if d := DetectTag(cfg, 4); d.Act {
		t.Fatalf("below threshold must be ignored")
	}
	d := DetectTag(cfg, 5)
	if !d.Act || d.Action != moderation.ActionDelete {
		t.Fatalf("expected Act(delete), got %+v", d)
	}
	if d := DetectTag(Config{}, 50); d.Act {
		t.Fatalf("disabled feature must be ignored")
	}
}

func TestDetectMentionTokens(t *testing.T) {
	cfg := Config{BaseConfig: moderation.BaseConfig{Enabled: true}}

	for _, text := range []string{"@everyone look", "hey @ALL", "@tagall"} {
		if d := DetectMention(cfg, text); !d.Act {
			t.Fatalf("expected match for %q", text)
		}
	}
	if d := DetectMention(cfg, "hello @allison"); d.Act {
		t.Fatalf("token must respect word boundaries")
	}
	if d := DetectMention(cfg, "regular message"); d.Act {
		t.Fatalf("plain text must be ignored")
	}
}

func TestDetectMentionConfiguredAction(t *testing.T) {
	cfg := Config{BaseConfig: moderation.BaseConfig{Enabled: true, Action: moderation.ActionKick}}
	d := DetectMention(cfg, "@everyone")
	if !d.Act || d.Action != moderation.ActionKick {
		t.Fatalf("expected configured kick, got %+v", d)
	}
}
