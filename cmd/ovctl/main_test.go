package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/LingByte/LingVidu/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionsBody = `{"numberOfElements":1,"content":[{"id":"S1","createdAt":1538481996019,"mediaMode":"ROUTED",
"recording":false,"connections":{"numberOfElements":1,"content":[{"id":"C1","type":"WEBRTC","status":"active",
"sessionId":"S1","createdAt":1538481999022,"activeAt":null,"token":"tok","role":"PUBLISHER","serverData":null,
"clientData":null,"publishers":[],"subscribers":[]}]}}]}`

// recorder keeps the last request seen by the test server
type recorder struct {
	mu   sync.Mutex
	last string
}

func (r *recorder) set(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = s
}

func (r *recorder) get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newTestApp(t *testing.T, format string) (*app, *bytes.Buffer, *recorder) {
	t.Helper()
	seen := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.set(r.Method + " " + r.URL.Path + " " + string(body))
		switch r.Method + " " + r.URL.Path {
		case "GET /openvidu/api/sessions":
			_, _ = w.Write([]byte(sessionsBody))
		case "POST /openvidu/api/tokens":
			_, _ = w.Write([]byte(`{"id":"tok_1","token":"tok_1"}`))
		case "GET /openvidu/api/config":
			_, _ = w.Write([]byte(`{"VERSION":"2.16.0"}`))
		case "POST /openvidu/api/signal":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{OpenVidu: config.OpenViduConfig{
		URL:     srv.URL + "/openvidu/api/",
		Secret:  "MY_SECRET",
		Timeout: 5 * time.Second,
	}}
	var out bytes.Buffer
	a, err := newApp(context.Background(), cfg, format, &out)
	require.NoError(t, err)
	return a, &out, seen
}

func TestNewAppRejectsFormat(t *testing.T) {
	_, err := newApp(context.Background(), &config.Config{}, "xml", io.Discard)
	assert.Error(t, err)
}

func TestRunSessionsJSON(t *testing.T) {
	a, out, _ := newTestApp(t, "json")
	require.NoError(t, runSessions(context.Background(), a, nil))
	assert.Contains(t, out.String(), `"id": "S1"`)
	assert.Contains(t, out.String(), `"id": "C1"`)
	assert.Contains(t, out.String(), `"activeAt": null`)
}

func TestRunSessionsYAML(t *testing.T) {
	a, out, _ := newTestApp(t, "yaml")
	require.NoError(t, runSessions(context.Background(), a, nil))
	assert.Contains(t, out.String(), "id: S1")
	assert.Contains(t, out.String(), "type: WEBRTC")
}

func TestRunToken(t *testing.T) {
	a, out, seen := newTestApp(t, "json")
	require.NoError(t, runToken(context.Background(), a, []string{"-role", "subscriber", "S1"}))
	assert.Contains(t, out.String(), "tok_1")
	assert.Contains(t, seen.get(), `"role":"SUBSCRIBER"`)
}

func TestRunSignalTargets(t *testing.T) {
	a, _, seen := newTestApp(t, "json")
	require.NoError(t, runSignal(context.Background(), a, []string{"-data", "hi", "-to", "C1", "S1"}))
	assert.Contains(t, seen.get(), `"to":["C1"]`)

	assert.Error(t, runSignal(context.Background(), a, []string{"-to", "nope", "S1"}))
}

func TestRunConfig(t *testing.T) {
	a, out, _ := newTestApp(t, "yaml")
	require.NoError(t, runConfig(context.Background(), a, nil))
	assert.Contains(t, out.String(), "VERSION: 2.16.0")
}

func TestParseArgs(t *testing.T) {
	a, _, _ := newTestApp(t, "json")
	assert.Error(t, runSession(context.Background(), a, nil))
	assert.Error(t, runClose(context.Background(), a, []string{"a", "b"}))
}
