package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
		want     bool
	}{
		{"matching password", "s3cret-pass", "s3cret-pass", true},
		{"wrong password", "s3cret-pass", "guess", false},
		{"case sensitive", "Password", "password", false},
		{"empty attempt", "s3cret-pass", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.password {
				t.Fatal("Hash() returned the plaintext")
			}
			if got := Verify(tt.attempt, hash); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if Verify("anything", "not-a-bcrypt-hash") {
		t.Error("Verify() accepted a malformed hash")
	}
}
