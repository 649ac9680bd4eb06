package staff

import (
	"strings"
	"testing"
)

func TestGenerateTempPassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		pw := generateTempPassword()
		if len(pw) != tempPasswordLength {
			t.Fatalf("len = %d, want %d", len(pw), tempPasswordLength)
		}
		for _, r := range pw {
			if !strings.ContainsRune(tempPasswordAlphabet, r) {
				t.Fatalf("password %q contains %q outside the alphabet", pw, r)
			}
		}
		if seen[pw] {
			t.Fatalf("duplicate password %q generated", pw)
		}
		seen[pw] = true
	}
}
