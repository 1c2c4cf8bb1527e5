package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// jwksServer serves a swappable JWKS document, mirroring an identity
// provider that rotates keys
type jwksServer struct {
	mu  sync.Mutex
	doc string
}

func (s *jwksServer) set(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

func (s *jwksServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.doc))
	}
}

func TestRefresherURLKeyRotation(t *testing.T) {
	privA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	privB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	upstream := &jwksServer{doc: jwksForKey("kid-a", &privA.PublicKey)}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	v := NewVerifier(Config{Secret: "fallback"})
	v.SetSource("url")
	r := NewRefresher(v, RefresherConfig{URL: server.URL, Interval: time.Minute})

	if !r.refreshOnce() {
		t.Fatal("refreshOnce() = false, want true")
	}

	claims := map[string]interface{}{"sub": "user-1", "exp": futureExp()}
	if _, err := v.VerifyToken(makeRS256JWT(t, "kid-a", privA, claims)); err != nil {
		t.Fatalf("VerifyToken(kid-a) error = %v", err)
	}

	status := v.Status()
	if !status.Loaded {
		t.Error("Status().Loaded = false, want true")
	}
	if status.LastRefreshEpochMs == 0 {
		t.Error("Status().LastRefreshEpochMs = 0, want set")
	}
	if status.LastError != "" {
		t.Errorf("Status().LastError = %q, want empty", status.LastError)
	}
	if status.Source != "url" {
		t.Errorf("Status().Source = %q, want url", status.Source)
	}

	// Rotate the upstream document and refresh again
	upstream.set(jwksForKey("kid-b", &privB.PublicKey))
	if !r.refreshOnce() {
		t.Fatal("refreshOnce() after rotation = false, want true")
	}

	if _, err := v.VerifyToken(makeRS256JWT(t, "kid-a", privA, claims)); !errors.Is(err, ErrNoMatchingKey) {
		t.Errorf("VerifyToken(kid-a) after rotation error = %v, want %v", err, ErrNoMatchingKey)
	}
	if _, err := v.VerifyToken(makeRS256JWT(t, "kid-b", privB, claims)); err != nil {
		t.Errorf("VerifyToken(kid-b) after rotation error = %v", err)
	}
}

func TestRefresherURLFailureRecordsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	v := NewVerifier(Config{Secret: "fallback"})
	r := NewRefresher(v, RefresherConfig{URL: server.URL, Interval: time.Minute})

	if r.refreshOnce() {
		t.Fatal("refreshOnce() = true, want false")
	}

	status := v.Status()
	if status.Loaded {
		t.Error("Status().Loaded = true, want false")
	}
	if !strings.HasPrefix(status.LastError, "url refresh failed:") {
		t.Errorf("Status().LastError = %q, want url refresh failed prefix", status.LastError)
	}
}

func TestRefresherFileFallback(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "jwks.json")
	if err := os.WriteFile(path, []byte(jwksForKey("kid-f", &priv.PublicKey)), 0600); err != nil {
		t.Fatalf("write JWKS file: %v", err)
	}

	// URL points at a server that is already gone; the file must win
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	v := NewVerifier(Config{Secret: "fallback"})
	r := NewRefresher(v, RefresherConfig{URL: deadURL, Path: path, Interval: time.Minute})

	if !r.refreshOnce() {
		t.Fatal("refreshOnce() = false, want true via file")
	}

	claims := map[string]interface{}{"sub": "user-1", "exp": futureExp()}
	if _, err := v.VerifyToken(makeRS256JWT(t, "kid-f", priv, claims)); err != nil {
		t.Errorf("VerifyToken() error = %v", err)
	}
}

func TestRefresherFileErrors(t *testing.T) {
	t.Run("unreadable file", func(t *testing.T) {
		v := NewVerifier(Config{Secret: "fallback"})
		r := NewRefresher(v, RefresherConfig{Path: filepath.Join(t.TempDir(), "absent.json"), Interval: time.Minute})

		if r.refreshOnce() {
			t.Fatal("refreshOnce() = true, want false")
		}
		if got := v.Status().LastError; !strings.HasPrefix(got, "file read failed:") {
			t.Errorf("LastError = %q, want file read failed prefix", got)
		}
	})

	t.Run("garbage file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jwks.json")
		if err := os.WriteFile(path, []byte("{nope"), 0600); err != nil {
			t.Fatalf("write file: %v", err)
		}

		v := NewVerifier(Config{Secret: "fallback"})
		r := NewRefresher(v, RefresherConfig{Path: path, Interval: time.Minute})

		if r.refreshOnce() {
			t.Fatal("refreshOnce() = true, want false")
		}
		if got := v.Status().LastError; !strings.HasPrefix(got, "file parse failed:") {
			t.Errorf("LastError = %q, want file parse failed prefix", got)
		}
	})
}

func TestRefresherBackoff(t *testing.T) {
	r := NewRefresher(NewVerifier(Config{}), RefresherConfig{URL: "http://unused", Interval: 20 * time.Second})

	tests := []struct {
		failures uint
		want     time.Duration
	}{
		{failures: 0, want: 20 * time.Second},
		{failures: 1, want: 40 * time.Second},
		{failures: 2, want: 80 * time.Second},
		{failures: 3, want: 160 * time.Second},
		{failures: 4, want: 300 * time.Second}, // 320s clamped
		{failures: 5, want: 300 * time.Second},
		{failures: 9, want: 300 * time.Second}, // shift capped at 5
	}

	for _, tt := range tests {
		if got := r.sleepFor(tt.failures); got != tt.want {
			t.Errorf("sleepFor(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestRefresherIntervalFloor(t *testing.T) {
	r := NewRefresher(NewVerifier(Config{}), RefresherConfig{URL: "http://unused", Interval: time.Second})
	if r.interval != MinRefreshInterval {
		t.Errorf("interval = %v, want floor %v", r.interval, MinRefreshInterval)
	}

	r = NewRefresher(NewVerifier(Config{}), RefresherConfig{URL: "http://unused"})
	if r.interval != DefaultRefreshInterval {
		t.Errorf("interval = %v, want default %v", r.interval, DefaultRefreshInterval)
	}
}

func TestRefresherStartStop(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}

	upstream := &jwksServer{doc: jwksForKey("kid-s", &priv.PublicKey)}
	server := httptest.NewServer(upstream.handler())
	defer server.Close()

	v := NewVerifier(Config{Secret: "fallback"})
	r := NewRefresher(v, RefresherConfig{URL: server.URL, Interval: time.Minute})

	r.Start()
	defer r.Stop()

	deadline := time.After(2 * time.Second)
	for !v.Status().Loaded {
		select {
		case <-deadline:
			t.Fatal("verifier never loaded keys after Start()")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
