package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"postgres_password", "hunter2", "state", "Assam"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "Assam" {
		t.Fatalf("state: want=Assam got=%v", out[3])
	}
}

func TestSanitizeKVsStripsURICredentials(t *testing.T) {
	out := sanitizeKVs([]interface{}{"mongo_uri", "mongodb://admin:pw@localhost:27017/agro_yield"})
	got, _ := out[1].(string)
	if strings.Contains(got, "pw@") || strings.Contains(got, "admin") {
		t.Fatalf("uri credentials leaked: %q", got)
	}
	if !strings.Contains(got, "localhost:27017") {
		t.Fatalf("uri host dropped: %q", got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected kvs: %#v", out)
	}
}
