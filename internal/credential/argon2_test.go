package credential

import "testing"

func TestHashAndVerify(t *testing.T) {
	h, err := NewHasher(TestParams())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	encoded, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := h.Verify("secret123", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("secret124", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}

	other, _ := h.Hash("secret123")
	if other == encoded {
		t.Fatal("salts must differ between hashes")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h, _ := NewHasher(TestParams())
	for _, in := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,x=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
	} {
		if _, err := h.Verify("pw", in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	p := TestParams()
	p.KeyLength = 8
	if _, err := NewHasher(p); err == nil {
		t.Fatal("expected key length error")
	}
}
