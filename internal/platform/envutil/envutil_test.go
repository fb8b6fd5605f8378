package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("X_DUR", "90")
	if got := Duration("X_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("seconds: want=%v got=%v", 90*time.Second, got)
	}
	t.Setenv("X_DUR", "250ms")
	if got := Duration("X_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("go syntax: want=%v got=%v", 250*time.Millisecond, got)
	}
	t.Setenv("X_DUR", "soon")
	if got := Duration("X_DUR", time.Second); got != time.Second {
		t.Fatalf("fallback: want=%v got=%v", time.Second, got)
	}
}

func TestListDropsBlanks(t *testing.T) {
	t.Setenv("X_LIST", " postgres, ,mongodb ")
	got := List("X_LIST", nil)
	if len(got) != 2 || got[0] != "postgres" || got[1] != "mongodb" {
		t.Fatalf("list: got=%v", got)
	}
}

func TestBoolFallback(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	if !Bool("X_BOOL", true) {
		t.Fatalf("bool fallback: want=true got=false")
	}
	t.Setenv("X_BOOL", "off")
	if Bool("X_BOOL", true) {
		t.Fatalf("bool off: want=false got=true")
	}
}
