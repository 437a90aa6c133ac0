package logger

import (
	"strings"
	"testing"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	l := Nop()
	out := l.sanitize([]interface{}{"api_key", "sk-123", "Authorization", "Bearer abc", "query", "catering"})
	if out[1] != "[REDACTED]" || out[3] != "[REDACTED]" {
		t.Fatalf("expected secrets redacted, got %v", out)
	}
	if out[5] != "catering" {
		t.Fatalf("plain values must pass through, got %v", out[5])
	}
}

func TestSanitizeHashesUserID(t *testing.T) {
	l := Nop()
	out := l.sanitize([]interface{}{"user_id", "u-1"})
	s, ok := out[1].(string)
	if !ok || !strings.HasPrefix(s, "hash:") || len(s) != len("hash:")+12 {
		t.Fatalf("expected hashed user id, got %v", out[1])
	}
	again := l.sanitize([]interface{}{"user_id", "u-1"})
	if again[1] != out[1] {
		t.Fatalf("hash must be stable")
	}
}

func TestSanitizeOddLength(t *testing.T) {
	out := Nop().sanitize([]interface{}{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output %v", out)
	}
}
