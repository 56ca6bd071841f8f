package webhook

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/sekia-discord/internal/config"
	"github.com/sekia-ai/sekia-discord/pkg/interactions"
)

const testTimestamp = "1700000000"

type testKeys struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return testKeys{pub: pub, priv: priv}
}

func (k testKeys) sign(timestamp string, body []byte) string {
	return hex.EncodeToString(ed25519.Sign(k.priv, append([]byte(timestamp), body...)))
}

func newTestServer(publicKey string) *Server {
	return newTestServerWithLogger(publicKey, zerolog.Nop())
}

func newTestServerWithLogger(publicKey string, logger zerolog.Logger) *Server {
	return NewServer(config.Config{
		Discord: config.DiscordConfig{PublicKey: publicKey},
		Webhook: config.WebhookConfig{Listen: "127.0.0.1:0", Path: "/"},
	}, logger)
}

// signedRequest builds a POST with a valid signature for body.
func signedRequest(k testKeys, body string) *http.Request {
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set(interactions.HeaderTimestamp, testTimestamp)
	req.Header.Set(interactions.HeaderSignature, k.sign(testTimestamp, []byte(body)))
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) interactions.Response {
	t.Helper()
	var resp interactions.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestInteractionPing(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	w := serve(s, signedRequest(k, `{"type":1}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"type":1}` {
		t.Errorf("body = %s, want {\"type\":1}", got)
	}
}

func TestInteractionCommands(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	tests := []struct {
		command string
		content string
	}{
		{"hello", interactions.HelloText},
		{"ping", interactions.PingText},
		{"anything-else", interactions.UnknownCommandText},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			w := serve(s, signedRequest(k, `{"type":2,"data":{"name":"`+tt.command+`"}}`))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			resp := decodeResponse(t, w)
			if resp.Type != 4 {
				t.Errorf("type = %d, want 4", resp.Type)
			}
			if resp.Data == nil || resp.Data.Content != tt.content {
				t.Errorf("data = %+v, want content %q", resp.Data, tt.content)
			}
		})
	}
}

func TestInteractionUnsupportedType(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	w := serve(s, signedRequest(k, `{"type":3}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Type != 5 {
		t.Errorf("type = %d, want 5", resp.Type)
	}
}

func TestInteractionMissingSignatureRejectedBeforeParsing(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	// Not JSON at all: a 400 here would mean the body was parsed.
	req := httptest.NewRequest("POST", "/", strings.NewReader(`not json`))
	req.Header.Set(interactions.HeaderTimestamp, testTimestamp)
	w := serve(s, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != authFailureMessage {
		t.Errorf("body = %q, want %q", got, authFailureMessage)
	}
}

func TestInteractionInvalidSignature(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))
	other := newTestKeys(t)

	tests := []struct {
		name   string
		mutate func(r *http.Request)
	}{
		{"missing timestamp", func(r *http.Request) { r.Header.Del(interactions.HeaderTimestamp) }},
		{"other timestamp", func(r *http.Request) { r.Header.Set(interactions.HeaderTimestamp, "1700000001") }},
		{"non-hex signature", func(r *http.Request) { r.Header.Set(interactions.HeaderSignature, "not-hex") }},
		{"signature from other key", func(r *http.Request) {
			r.Header.Set(interactions.HeaderSignature, other.sign(testTimestamp, []byte(`{"type":1}`)))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signedRequest(k, `{"type":1}`)
			tt.mutate(req)
			w := serve(s, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestInteractionTamperedBody(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"type": 1}`))
	req.Header.Set(interactions.HeaderTimestamp, testTimestamp)
	req.Header.Set(interactions.HeaderSignature, k.sign(testTimestamp, []byte(`{"type":1}`)))

	if w := serve(s, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestInteractionNoPublicKey(t *testing.T) {
	k := newTestKeys(t)
	var logBuf bytes.Buffer
	s := newTestServerWithLogger("", zerolog.New(&logBuf))

	startup := logBuf.String()
	if !strings.Contains(startup, `"level":"warn"`) ||
		!strings.Contains(startup, "all interactions will be rejected") {
		t.Errorf("expected startup warning about rejected interactions, got: %s", startup)
	}
	logBuf.Reset()

	w := serve(s, signedRequest(k, `{"type":1}`))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(logBuf.String(), "public key not configured") {
		t.Errorf("expected per-request warning, got: %s", logBuf.String())
	}
}

func TestInteractionLenientDecoding(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	tests := []struct {
		body   string
		status int
		want   string
	}{
		{`{"type":256}`, http.StatusBadRequest, `{"type":5}`},
		{`{"type":-1}`, http.StatusBadRequest, `{"type":5}`},
		{`{"type":257}`, http.StatusBadRequest, `{"type":5}`},
		{`{}`, http.StatusBadRequest, `{"type":5}`},
		{`{"type":1,"id":123}`, http.StatusOK, `{"type":1}`},
		{`{"type":1,"data":[]}`, http.StatusOK, `{"type":1}`},
		{`{"type":2,"data":[]}`, http.StatusOK, `{"type":4,"data":{"content":"` + interactions.UnknownCommandText + `","flags":64}}`},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := serve(s, signedRequest(k, tt.body))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInteractionMalformedPublicKey(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer("zz-not-a-key")

	if w := serve(s, signedRequest(k, `{"type":1}`)); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestInteractionInvalidJSON(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	for _, body := range []string{`{"type":`, `{"type":"1"}`} {
		w := serve(s, signedRequest(k, body))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "invalid json" {
			t.Errorf("%s: body = %q, want invalid json", body, got)
		}
	}
}

func TestInteractionMethodNotAllowed(t *testing.T) {
	s := newTestServer("")

	w := serve(s, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer("")

	w := serve(s, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestRunAndStop(t *testing.T) {
	k := newTestKeys(t)
	s := newTestServer(hex.EncodeToString(k.pub))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start in time")
	}

	body := `{"type":1}`
	req, _ := http.NewRequest("POST", "http://"+s.Addr()+"/", strings.NewReader(body))
	req.Header.Set(interactions.HeaderTimestamp, testTimestamp)
	req.Header.Set(interactions.HeaderSignature, k.sign(testTimestamp, []byte(body)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	s.Stop()
	s.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestStopBeforeRun(t *testing.T) {
	s := newTestServer("")
	s.Stop()
	s.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
