package crypto

import "testing"

func TestHeadersAtDeterministic(t *testing.T) {
	auth := &HMACAuth{Secret: "topsecret"}

	h1 := auth.HeadersAt(`{"debate_id":"d1"}`, 1700000000)
	h2 := auth.HeadersAt(`{"debate_id":"d1"}`, 1700000000)

	if h1[HeaderTimestamp] != "1700000000" {
		t.Fatalf("timestamp header = %q, want 1700000000", h1[HeaderTimestamp])
	}
	if h1[HeaderSignature] == "" || h1[HeaderSignature] != h2[HeaderSignature] {
		t.Fatalf("signature not deterministic: %q vs %q", h1[HeaderSignature], h2[HeaderSignature])
	}

	// A different body must change the signature.
	h3 := auth.HeadersAt(`{"debate_id":"d2"}`, 1700000000)
	if h3[HeaderSignature] == h1[HeaderSignature] {
		t.Fatal("signature did not change with body")
	}
}

func TestVerify(t *testing.T) {
	sig := Sign("s3cret", "1700000000", "payload")

	if !Verify("s3cret", "1700000000", "payload", sig) {
		t.Fatal("valid signature rejected")
	}
	if Verify("s3cret", "1700000001", "payload", sig) {
		t.Fatal("signature accepted with wrong timestamp")
	}
	if Verify("other", "1700000000", "payload", sig) {
		t.Fatal("signature accepted with wrong secret")
	}
	if Verify("s3cret", "1700000000", "payload", "zz-not-hex") {
		t.Fatal("malformed signature accepted")
	}
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("master-passphrase")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	sealed, err := s.Seal("bot-shared-secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "bot-shared-secret" {
		t.Fatal("sealed output equals plaintext")
	}

	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "bot-shared-secret" {
		t.Fatalf("Open = %q, want original plaintext", got)
	}

	// A sealer with the wrong passphrase must fail to open.
	wrong, _ := NewSealer("other")
	if _, err := wrong.Open(sealed); err == nil {
		t.Fatal("Open succeeded with wrong passphrase")
	}
}

func TestNewSealerRejectsEmptyPassphrase(t *testing.T) {
	if _, err := NewSealer(""); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
}
