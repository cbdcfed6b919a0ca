package errors

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseError(t *testing.T) {
	underlying := errors.New("bad field")
	err := NewParseError("/path/to/items.csv", 10, underlying)

	if err.Type != ErrorTypeParse {
		t.Errorf("Expected Type to be ErrorTypeParse, got %v", err.Type)
	}

	if err.Line != 10 {
		t.Errorf("Expected Line to be 10, got %d", err.Line)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "parse error at /path/to/items.csv:10: bad field"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestColumnCountError(t *testing.T) {
	err := NewColumnCountError("", 7, 4, 5)

	if err.Expected != 4 || err.Actual != 5 {
		t.Errorf("Expected/Actual should be 4/5, got %d/%d", err.Expected, err.Actual)
	}

	expectedMsg := "parse error at line 7: column count mismatch: have 5, expected 4"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileError(t *testing.T) {
	underlying := errors.New("permission denied")
	err := NewFileError("read", "/path/to/file", underlying)

	if err.Type != ErrorTypePermission {
		t.Errorf("Expected Type to be ErrorTypePermission, got %v", err.Type)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "file read failed for /path/to/file: permission denied"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileErrorWithNotFound(t *testing.T) {
	underlying := errors.New("no such file or directory")
	err := NewFileError("stat", "/missing/file", underlying)

	if err.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected Type to be ErrorTypeFileNotFound, got %v", err.Type)
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be >= 10")
	err := NewConfigError("resnumb", "5", underlying)

	if err.Type != ErrorTypeUsage {
		t.Errorf("Expected Type to be ErrorTypeUsage, got %v", err.Type)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := `invalid resnumb "5": must be >= 10`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}

	noValue := NewConfigError("input file", "", underlying)
	if noValue.Error() != "invalid input file: must be >= 10" {
		t.Errorf("Unexpected message without value: %q", noValue.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError([]string{"duplicate item id \"a\"", "cost must be > -999998"})

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected Type to be ErrorTypeValidation, got %v", err.Type)
	}

	if !strings.HasPrefix(err.Error(), "validation failed with 2 problems") {
		t.Errorf("Unexpected message: %q", err.Error())
	}

	single := NewValidationError([]string{"empty item id"})
	if single.Error() != "validation failed: empty item id" {
		t.Errorf("Unexpected single message: %q", single.Error())
	}
}

func TestEngineError(t *testing.T) {
	err := NewEngineError("lock_and_load", 0)
	if err.Type != ErrorTypeEngine {
		t.Errorf("Expected Type to be ErrorTypeEngine, got %v", err.Type)
	}
	if err.Error() != "engine lock_and_load failed (code 0)" {
		t.Errorf("Unexpected message: %q", err.Error())
	}

	cause := errors.New("exhausted")
	wrapped := NewEngineError("getres", -1).WithCause(cause)
	if !errors.Is(wrapped, cause) {
		t.Errorf("Expected error to unwrap to cause")
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")
	err3 := errors.New("error 3")

	multiErr := NewMultiError([]error{err1, err2, err3})

	if len(multiErr.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(multiErr.Errors))
	}

	if !strings.HasPrefix(multiErr.Error(), "3 errors:") {
		t.Errorf("Expected message to start with '3 errors:', got %q", multiErr.Error())
	}

	singleErr := NewMultiError([]error{err1})
	if singleErr.Error() != "error 1" {
		t.Errorf("Expected 'error 1', got %q", singleErr.Error())
	}

	emptyErr := NewMultiError([]error{})
	if emptyErr.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got %q", emptyErr.Error())
	}
	if emptyErr.ErrorOrNil() != nil {
		t.Errorf("Expected ErrorOrNil to be nil for empty multi-error")
	}

	nilFiltered := NewMultiError([]error{err1, nil, err2, nil})
	if len(nilFiltered.Errors) != 2 {
		t.Errorf("Expected 2 errors after filtering nil, got %d", len(nilFiltered.Errors))
	}

	if !errors.Is(multiErr, err2) {
		t.Errorf("Expected errors.Is to find err2 in multi-error")
	}
}

func TestMessages(t *testing.T) {
	err := NewMultiError([]error{
		NewColumnCountError("f.csv", 3, 4, 2),
		NewValidationError([]string{"a", "b"}),
	})

	msgs := Messages(err)
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d: %v", len(msgs), msgs)
	}
	if msgs[1] != "a" || msgs[2] != "b" {
		t.Errorf("Validation problems should be expanded in order, got %v", msgs)
	}

	if Messages(nil) != nil {
		t.Errorf("Expected no messages for nil error")
	}
}

func TestTimestamp(t *testing.T) {
	err := NewEngineError("execute", 0)
	if err.Timestamp.IsZero() {
		t.Errorf("Expected non-zero timestamp")
	}

	now := time.Now()
	if err.Timestamp.After(now) || now.Sub(err.Timestamp) > time.Second {
		t.Errorf("Timestamp seems incorrect: %v", err.Timestamp)
	}
}
