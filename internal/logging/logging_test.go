package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"INFO":    zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestOperationErrorWrapping(t *testing.T) {
	base := errors.New("boom")
	err := NewOperationError("usecase.save", "req-1", NewOperationError("repository.save", "req-1", base))

	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to find the base error")
	}
	if got := err.Error(); got != "usecase.save (request_id=req-1): repository.save (request_id=req-1): boom" {
		t.Fatalf("unexpected message: %s", got)
	}
	if op := OperationOf(err); op != "repository.save" {
		t.Fatalf("expected innermost operation, got %q", op)
	}
	if NewOperationError("noop", "", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
