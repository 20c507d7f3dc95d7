package config

import (
	"testing"
)

func TestFieldsCoverConfig(t *testing.T) {
	got := make(map[string]Field)
	for _, f := range Fields() {
		got[f.Key] = f
	}

	tests := []struct {
		key    string
		env    string
		secret bool
	}{
		{"agent", "BOT_AGENT", false},
		{"xmpp.jid", "BOT_JID", false},
		{"xmpp.password", "BOT_PASSWORD", true},
		{"xmpp.room", "ROOM_JID", false},
		{"llm.api_key", "OPENAI_API_KEY", true},
		{"llm.max_prompt_tokens", "BOT_MAX_PROMPT_TOKENS", false},
		{"api.app_token", "APP_TOKEN", true},
		{"api.retry_delay_ms", "RETRY_DELAY", false},
	}
	for _, tt := range tests {
		f, ok := got[tt.key]
		if !ok {
			t.Errorf("missing field %s", tt.key)
			continue
		}
		if f.Env != tt.env || f.Secret != tt.secret {
			t.Errorf("%s: expected env=%s secret=%v, got env=%s secret=%v", tt.key, tt.env, tt.secret, f.Env, f.Secret)
		}
	}

	keys := Fields()
	for i := 1; i < len(keys); i++ {
		if keys[i-1].Key >= keys[i].Key {
			t.Fatalf("fields not sorted at %s", keys[i].Key)
		}
	}
}

func TestIsSecretKey(t *testing.T) {
	for key, want := range map[string]bool{
		"xmpp.password": true,
		"llm.api_key":   true,
		"api.app_token": true,
		"xmpp.jid":      false,
		"llm.model":     false,
		"unknown":       false,
	} {
		if got := IsSecretKey(key); got != want {
			t.Errorf("IsSecretKey(%q) = %v", key, got)
		}
	}
}

func TestFieldValueAndParse(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.HistorySize = 7

	f, _ := LookupField("llm.history_size")
	if v := f.Value(cfg); v != 7 {
		t.Errorf("expected 7, got %v (%T)", v, v)
	}
	if _, err := f.Parse("seven"); err == nil {
		t.Error("expected integer parse error")
	}

	f, _ = LookupField("llm.temperature")
	v, err := f.Parse("0")
	if err != nil || v != float64(0) {
		t.Errorf("expected 0, got %v, %v", v, err)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"tok-abcd1234", "***1234"},
		{"abc", "***abc"},
		{"", ""},
		{5, 5},
	}
	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPaths(t *testing.T) {
	m := map[string]any{}
	setPath(m, "xmpp.room", "lobby")
	setPath(m, "log_level", "debug")

	if v, ok := lookupPath(m, "xmpp.room"); !ok || v != "lobby" {
		t.Errorf("expected nested value, got %v %v", v, ok)
	}
	if v, ok := lookupPath(m, "log_level"); !ok || v != "debug" {
		t.Errorf("expected top-level value, got %v %v", v, ok)
	}
	if _, ok := lookupPath(m, "xmpp.jid"); ok {
		t.Error("expected missing key")
	}
	if _, ok := lookupPath(m, "log_level.deeper"); ok {
		t.Error("expected scalar not to be walked")
	}
	if _, ok := lookupPath(nil, "xmpp.room"); ok {
		t.Error("expected nil object to hold nothing")
	}
}
