package auth

import (
	"encoding/base64"
	"testing"
)

func TestPasswordHashDeterministic(t *testing.T) {
	a := PasswordHash("user@example.com", "hunter2")
	b := PasswordHash("user@example.com", "hunter2")
	if a != b {
		t.Errorf("hash not deterministic: %q != %q", a, b)
	}
}

func TestPasswordHashCaseFoldsUser(t *testing.T) {
	lower := PasswordHash("user@example.com", "hunter2")
	upper := PasswordHash("USER@EXAMPLE.COM", "hunter2")
	mixed := PasswordHash("User@Example.Com", "hunter2")

	if lower != upper || lower != mixed {
		t.Error("user identifier should be case-folded before hashing")
	}
}

func TestPasswordHashDependsOnBothInputs(t *testing.T) {
	base := PasswordHash("user@example.com", "hunter2")

	if got := PasswordHash("other@example.com", "hunter2"); got == base {
		t.Error("different user produced identical hash")
	}
	if got := PasswordHash("user@example.com", "hunter3"); got == base {
		t.Error("different secret produced identical hash")
	}
}

func TestPasswordHashEncoding(t *testing.T) {
	h := PasswordHash("user@example.com", "hunter2")

	// Standard base64 with padding, decoding to a full SHA-256 digest.
	raw, err := base64.StdEncoding.DecodeString(h)
	if err != nil {
		t.Fatalf("hash is not standard base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded digest length = %d, want 32", len(raw))
	}
}

func TestPasswordHashEmptyInputs(t *testing.T) {
	// Degenerate inputs still produce a well-formed hash; credential
	// presence is enforced by the session, not here.
	h := PasswordHash("", "")
	if _, err := base64.StdEncoding.DecodeString(h); err != nil {
		t.Errorf("empty-input hash is not valid base64: %v", err)
	}
}
