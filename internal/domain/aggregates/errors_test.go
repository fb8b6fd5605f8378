package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeConflict, Op: "record.create", Message: "dup"}, "record.create [conflict]: dup"},
		{&Error{Code: CodeNotFound, Op: "record.delete"}, "record.delete [not_found]"},
		{&Error{Code: CodeInvalid, Message: "bad year"}, "[invalid]: bad year"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): want=%q got=%q", tc.want, got)
		}
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	base := NewError(CodeStorageUnavailable, "record.get", "down", errors.New("dial tcp"))
	wrapped := fmt.Errorf("service: %w", base)
	if got := CodeOf(wrapped); got != CodeStorageUnavailable {
		t.Fatalf("CodeOf: want=%s got=%s", CodeStorageUnavailable, got)
	}
	if !IsCode(wrapped, CodeStorageUnavailable) {
		t.Fatalf("IsCode: want=true")
	}
	if IsCode(nil, "") {
		t.Fatalf("IsCode(nil, \"\"): want=false")
	}
	if got := MessageOf(wrapped); got != "down" {
		t.Fatalf("MessageOf: want=down got=%q", got)
	}
	if got := MessageOf(errors.New("plain")); got != "plain" {
		t.Fatalf("MessageOf plain: want=plain got=%q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil): want=nil")
	}
}
