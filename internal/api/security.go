package api

import (
	"crypto/rand"
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const ipHashBytes = 16

// ipHasher maps client addresses and subjects to keyed digests so logs never carry them raw.
type ipHasher struct {
	key []byte
}

func newIPHasher() ipHasher {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return ipHasher{key: key}
}

func (h ipHasher) hash(value string) string {
	if value == "" {
		return ""
	}
	mac, err := blake2b.New(ipHashBytes, h.key)
	if err != nil {
		return ""
	}
	_, _ = mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			return candidate
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
