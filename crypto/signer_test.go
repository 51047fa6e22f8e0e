package crypto

import "testing"

func TestGenKey_Deterministic(t *testing.T) {
	pub1, priv1 := GenKey(5)
	pub2, priv2 := GenKey(5)
	if string(pub1) != string(pub2) || string(priv1) != string(priv2) {
		t.Fatalf("GenKey(5) is not deterministic")
	}
}

func TestGenKey_DifferentSeedsDifferentKeys(t *testing.T) {
	pub1, _ := GenKey(1)
	pub2, _ := GenKey(2)
	if string(pub1) == string(pub2) {
		t.Fatalf("different seeds produced the same public key")
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	pub, priv := GenKey(9)
	msg := []byte("verify me")
	sig := Sign(priv, msg)
	if !Verify(pub, msg, sig) {
		t.Fatalf("valid signature rejected")
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	_, priv := GenKey(9)
	otherPub, _ := GenKey(10)
	msg := []byte("verify me")
	sig := Sign(priv, msg)
	if Verify(otherPub, msg, sig) {
		t.Fatalf("signature verified under the wrong public key")
	}
}

func TestVerify_RejectsMalformedKey(t *testing.T) {
	if Verify(PubKey{1, 2, 3}, []byte("msg"), []byte("sig")) {
		t.Fatalf("expected malformed public key to be rejected")
	}
}
