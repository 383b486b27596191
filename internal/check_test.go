package internal

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	res := Decrypt(&Request{Secrets: []string{"a", "b", "x_error", "y_ignore"}})

	if err := Check([]string{"a", "b"}, res); err != nil {
		t.Errorf("unexpected error, err=%v", err)
	}
	if err := Check(nil, res); err != nil {
		t.Errorf("unexpected error for no handles, err=%v", err)
	}

	err := Check([]string{"a", "x_error", "y_ignore"}, res)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "secret x_error: cannot decrypt x_error\n" +
		"secret y_ignore was not returned by the backend"
	if got := err.Error(); got != want {
		t.Errorf("error mismatch, got=%q, want=%q", got, want)
	}

	err = Check([]string{"missing"}, NewResponse())
	if err == nil || strings.Contains(err.Error(), "\n") {
		t.Errorf("single failure must not be joined, err=%v", err)
	}
}
