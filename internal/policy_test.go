package internal

import "testing"

func TestDecide(t *testing.T) {
	testCases := []struct {
		handle string
		want   Result
	}{
		{handle: "a", want: Result{Kind: Success, Value: "decrypted_a"}},
		{handle: "", want: Result{Kind: Success, Value: "decrypted_"}},
		{handle: "x_error", want: Result{Kind: Failure, Error: "cannot decrypt x_error"}},
		{handle: "_error", want: Result{Kind: Failure, Error: "cannot decrypt _error"}},
		{handle: "y_ignore", want: Result{Kind: Ignored}},
		{handle: "_ignore", want: Result{Kind: Ignored}},
		// Only the suffix counts.
		{handle: "x_error_ignore", want: Result{Kind: Ignored}},
		{handle: "y_ignore_error", want: Result{Kind: Failure, Error: "cannot decrypt y_ignore_error"}},
		{handle: "x_errors", want: Result{Kind: Success, Value: "decrypted_x_errors"}},
		{handle: "X_ERROR", want: Result{Kind: Success, Value: "decrypted_X_ERROR"}},
		{handle: "日本_error", want: Result{Kind: Failure, Error: "cannot decrypt 日本_error"}},
	}
	for _, tc := range testCases {
		if got := Decide(tc.handle); got != tc.want {
			t.Errorf("result mismatch, handle=%q, got=%+v, want=%+v", tc.handle, got, tc.want)
		}
	}
}

func TestResultRecord(t *testing.T) {
	if rec, ok := Decide("a").Record(); !ok || rec != (Record{Value: "decrypted_a"}) {
		t.Errorf("success record mismatch, got=%+v, ok=%v", rec, ok)
	}
	if rec, ok := Decide("x_error").Record(); !ok || rec != (Record{Value: "", Error: "cannot decrypt x_error"}) {
		t.Errorf("failure record mismatch, got=%+v, ok=%v", rec, ok)
	}
	if rec, ok := Decide("y_ignore").Record(); ok {
		t.Errorf("ignored handle must have no record, got=%+v", rec)
	}
}

func TestResultKindString(t *testing.T) {
	for kind, want := range map[ResultKind]string{
		Success:       "success",
		Failure:       "failure",
		Ignored:       "ignored",
		ResultKind(9): "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("kind string mismatch, got=%s, want=%s", got, want)
		}
	}
}
