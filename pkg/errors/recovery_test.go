package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "Ridge.Fit")
		panic("index out of range")
	}

	err := fit()
	if err == nil {
		t.Fatal("expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected *PanicError, got %T", err)
	}
	if panicErr.Operation != "Ridge.Fit" {
		t.Errorf("operation = %q, want %q", panicErr.Operation, "Ridge.Fit")
	}
	if panicErr.StackTrace == "" {
		t.Error("expected non-empty stack trace")
	}
	if got, want := panicErr.Error(), "panic in Ridge.Fit: index out of range"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !strings.Contains(panicErr.String(), "stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "Ridge.Fit")
		return nil
	}
	if err := fit(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRecover_KeepsExistingError(t *testing.T) {
	original := fmt.Errorf("singular matrix")

	fit := func() (err error) {
		defer Recover(&err, "LinearRegression.Fit")
		err = original
		panic("after error")
	}

	err := fit()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "panic in LinearRegression.Fit") {
		t.Errorf("missing panic info: %s", err.Error())
	}
	if !errors.Is(err, original) {
		t.Error("original error should remain in the chain")
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantPanic bool
		wantErr   bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return fmt.Errorf("boom") }, wantErr: true},
		{name: "panic", fn: func() error { panic("boom") }, wantErr: true, wantPanic: true},
		{name: "nil map write", fn: func() error {
			var m map[string]int
			m["x"] = 1
			return nil
		}, wantErr: true, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("trial", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Errorf("errors.As(*PanicError) = %v, want %v", got, tt.wantPanic)
			}
		})
	}
}
