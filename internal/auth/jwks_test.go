package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWKSetKeySetSkipsUnusableKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	good := RSAJWK("good", &key.PublicKey)
	enc := RSAJWK("enc", &key.PublicKey)
	enc.Use = "enc"
	ec := JWK{Kid: "ec", Kty: "EC"}
	noKid := RSAJWK("", &key.PublicKey)
	badExp := RSAJWK("bad-exp", &key.PublicKey)
	badExp.E = "AQ"

	keys := JWKSet{Keys: []JWK{good, enc, ec, noKid, badExp}}.KeySet()
	if len(keys) != 1 {
		t.Fatalf("expected 1 usable key, got %d", len(keys))
	}
	pub := keys["good"]
	if pub == nil || pub.N.Cmp(key.PublicKey.N) != 0 || pub.E != key.PublicKey.E {
		t.Fatalf("decoded key does not match")
	}
}

func TestHTTPKeySourceErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer failing.Close()
	if _, err := NewHTTPKeySource(failing.URL, time.Second).Keys(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer garbage.Close()
	if _, err := NewHTTPKeySource(garbage.URL, time.Second).Keys(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}

	if _, err := NewHTTPKeySource("", 0).Keys(context.Background()); err == nil {
		t.Fatal("expected error without url")
	}
}
