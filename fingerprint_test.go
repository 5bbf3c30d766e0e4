package specocr

import (
	"bytes"
	"strings"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	f := NewFingerprinter()
	image := bytes.Repeat([]byte{0xAB, 0xCD}, 4096)

	first := f.Fingerprint(image)
	second := f.Fingerprint(image)

	if first != second {
		t.Errorf("Expected identical fingerprints for identical input, got %s and %s", first, second)
	}
	if len(first) != fingerprintHexLen {
		t.Errorf("Expected %d hex chars, got %d", fingerprintHexLen, len(first))
	}
}

func TestFingerprint_DifferentContentDiffers(t *testing.T) {
	f := NewFingerprinter()

	a := bytes.Repeat([]byte{0x01}, 8192)
	b := bytes.Repeat([]byte{0x02}, 8192)

	if f.Fingerprint(a) == f.Fingerprint(b) {
		t.Error("Expected different content to fingerprint differently")
	}
}

func TestFingerprint_SmallBuffer(t *testing.T) {
	f := NewFingerprinter()

	// Buffers shorter than the sample size fall back to stride 1.
	got := f.Fingerprint([]byte("tiny"))
	if len(got) != fingerprintHexLen {
		t.Errorf("Expected %d hex chars for a tiny buffer, got %q", fingerprintHexLen, got)
	}
}

// TestFingerprint_EmptyFallsBackToUniqueToken verifies that unreadable input
// yields a token that never matches a cached fingerprint, including across
// repeated failures.
func TestFingerprint_EmptyFallsBackToUniqueToken(t *testing.T) {
	f := NewFingerprinter()

	first := f.Fingerprint(nil)
	second := f.Fingerprint(nil)

	if !strings.HasPrefix(first, "fallback-") {
		t.Errorf("Expected fallback token, got %q", first)
	}
	if first == second {
		t.Error("Expected fallback tokens to be unique per call")
	}
}

// TestFingerprint_BoundedCost checks that large buffers do not hash more
// than the sample size: two buffers identical at every sampled offset but
// different in between yield the same fingerprint.
func TestFingerprint_BoundedCost(t *testing.T) {
	f := NewFingerprinter()

	size := fingerprintSampleSize * 100
	stride := size / fingerprintSampleSize

	a := make([]byte, size)
	b := make([]byte, size)
	for i := range b {
		if i%stride != 0 {
			b[i] = 0xFF // never sampled
		}
	}

	if f.Fingerprint(a) != f.Fingerprint(b) {
		t.Error("Expected identical fingerprints when only unsampled bytes differ")
	}
}
