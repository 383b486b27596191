package myerrors

import (
	"errors"
	"testing"
)

func TestJoin(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	if err := Join(); err != nil {
		t.Errorf("no errors, got=%v, want=nil", err)
	}
	if err := Join(nil, nil); err != nil {
		t.Errorf("nil errors, got=%v, want=nil", err)
	}
	if err := Join(nil, errA, nil); err != errA {
		t.Errorf("single error, got=%v, want=%v", err, errA)
	}

	err := Join(errA, nil, errB)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("joined error does not wrap both, got=%v", err)
	}
	if got, want := err.Error(), "a\nb"; got != want {
		t.Errorf("message mismatch, got=%q, want=%q", got, want)
	}
}
