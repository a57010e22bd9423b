package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMetadataMissing, "slide size not found in %s", "deck.pptx")

	if err.Code != ErrCodeMetadataMissing {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeMetadataMissing)
	}
	if err.Message != "slide size not found in deck.pptx" {
		t.Errorf("Message = %q", err.Message)
	}
	want := "METADATA_MISSING: slide size not found in deck.pptx"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := Wrap(ErrCodeConversionFailed, cause, "convert %s to PDF", "deck.pptx")

	if err.Cause != cause {
		t.Error("Cause not preserved")
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	want := "CONVERSION_FAILED: convert deck.pptx to PDF: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeRasterizationFailed, "both render paths failed")

	if !Is(err, ErrCodeRasterizationFailed) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeNoFramesProduced) {
		t.Error("Is should not match a different code")
	}

	// Codes survive another layer of fmt wrapping.
	wrapped := fmt.Errorf("check failed: %w", err)
	if !Is(wrapped, ErrCodeRasterizationFailed) {
		t.Error("Is should unwrap fmt-wrapped errors")
	}

	if Is(stderrors.New("plain"), ErrCodeInternal) {
		t.Error("Is should not match plain errors")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeTimeout, "backend timed out")); got != ErrCodeTimeout {
		t.Errorf("GetCode = %s, want %s", got, ErrCodeTimeout)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeUnrecognizedPageSize, "page size %q does not parse", "bogus")
	if got := UserMessage(err); got != `page size "bogus" does not parse` {
		t.Errorf("UserMessage = %q", got)
	}

	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage on plain error = %q", got)
	}
}
