package mcpquic

import (
	"bytes"
	"errors"
	"testing"
)

func TestMagicBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Fatalf("ValidateMagicBytes: %v", err)
	}
}

func TestValidateMagicBytesRejects(t *testing.T) {
	err := ValidateMagicBytes(bytes.NewBufferString("GET /"))
	if !errors.Is(err, ErrInvalidMagicBytes) {
		t.Fatalf("err = %v, want ErrInvalidMagicBytes", err)
	}
}

func TestValidateMagicBytesShortRead(t *testing.T) {
	if err := ValidateMagicBytes(bytes.NewBufferString("MC")); err == nil {
		t.Fatal("expected error on truncated preamble")
	}
}
