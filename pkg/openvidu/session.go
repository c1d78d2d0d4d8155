package openvidu

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/LingByte/LingVidu/pkg/metrics"
	"go.uber.org/zap"
)

// Session is a cached server session. A Session stays usable after its Client
// stops tracking it; once flagged invalid every call fails with ErrSessionNotFound.
type Session struct {
	g *graph

	id                     string
	createdAt              time.Time
	mediaMode              MediaMode
	recordingMode          RecordingMode
	defaultOutputMode      OutputMode
	defaultRecordingLayout string
	defaultCustomLayout    string
	customSessionID        string
	recording              bool
	connections            []*Connection

	valid bool
	last  interface{}
}

// newSession builds a detached session from a snapshot. Nothing is shared
// with the cache until the caller commits it.
func newSession(g *graph, snap sessionSnapshot, raw interface{}) (*Session, error) {
	s := &Session{
		g:                      g,
		id:                     firstNonEmpty(snap.ID, snap.SessionID),
		createdAt:              millis(snap.CreatedAt),
		mediaMode:              MediaMode(snap.MediaMode),
		recordingMode:          RecordingMode(snap.RecordingMode),
		defaultOutputMode:      OutputMode(snap.DefaultOutputMode),
		defaultRecordingLayout: snap.DefaultRecordingLayout,
		defaultCustomLayout:    snap.DefaultCustomLayout,
		customSessionID:        snap.CustomSessionID,
		recording:              snap.Recording,
		valid:                  true,
		last:                   raw,
	}
	if snap.Connections == nil {
		return s, nil
	}
	rawContent := rawField(rawField(raw, "connections"), "content")
	s.connections = make([]*Connection, 0, len(snap.Connections.Content))
	for i, cs := range snap.Connections.Content {
		conn, err := newConnection(g, s.id, cs, rawIndex(rawContent, i))
		if err != nil {
			return nil, err
		}
		s.connections = append(s.connections, conn)
	}
	return s, nil
}

// assign copies fresh state into s. Connections still listed keep their
// identity; connections gone from the listing are dropped from s only.
func (s *Session) assign(fresh *Session) {
	known := make(map[string]*Connection, len(s.connections))
	for _, c := range s.connections {
		if c.valid {
			known[c.id] = c
		}
	}
	conns := make([]*Connection, 0, len(fresh.connections))
	for _, fc := range fresh.connections {
		if c, ok := known[fc.id]; ok {
			c.assign(fc)
			conns = append(conns, c)
			continue
		}
		conns = append(conns, fc)
	}

	s.createdAt = fresh.createdAt
	s.mediaMode = fresh.mediaMode
	s.recordingMode = fresh.recordingMode
	s.defaultOutputMode = fresh.defaultOutputMode
	s.defaultRecordingLayout = fresh.defaultRecordingLayout
	s.defaultCustomLayout = fresh.defaultCustomLayout
	s.customSessionID = fresh.customSessionID
	s.recording = fresh.recording
	s.connections = conns
	s.last = fresh.last
}

func (s *Session) invalidate(reason string) {
	if !s.valid {
		return
	}
	s.valid = false
	metrics.Invalidations.WithLabelValues("session").Inc()
	s.g.logger.Debug("session invalidated", zap.String("session_id", s.id), zap.String("reason", reason))
}

// notFound flips s invalid when err reports the session gone
func (s *Session) notFound(err error, reason string) error {
	if errors.Is(err, ErrSessionNotFound) {
		s.invalidate(reason)
	}
	return err
}

// Fetch updates the session from the server. It reports false when nothing changed.
func (s *Session) Fetch(ctx context.Context) (changed bool, err error) {
	defer func() { metrics.ObserveFetch("session", changed, err) }()

	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return false, ErrSessionNotFound
	}
	res, err := s.g.transport.do(ctx, http.MethodGet, "session", pathf(constants.PathSession, s.id), nil)
	if err != nil {
		return false, err
	}
	if err := checkStatus(res, statusMap{http.StatusNotFound: ErrSessionNotFound}); err != nil {
		return false, s.notFound(err, "fetch")
	}
	raw, err := decodeRaw(res.body)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(raw, s.last) {
		return false, nil
	}
	var snap sessionSnapshot
	if err := decodeInto(res.body, &snap); err != nil {
		return false, err
	}
	fresh, err := newSession(s.g, snap, raw)
	if err != nil {
		return false, err
	}
	s.assign(fresh)
	return true, nil
}

// Close deletes the session on the server and flags it invalid
func (s *Session) Close(ctx context.Context) error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return ErrSessionNotFound
	}
	res, err := s.g.transport.do(ctx, http.MethodDelete, "session", pathf(constants.PathSession, s.id), nil)
	if err != nil {
		return err
	}
	if err := checkStatus(res, statusMap{http.StatusNotFound: ErrSessionNotFound}); err != nil {
		return s.notFound(err, "close")
	}
	s.invalidate("closed")
	s.g.logger.Info("session closed", zap.String("session_id", s.id))
	return nil
}

// GetConnection returns a cached, valid connection without contacting the server
func (s *Session) GetConnection(id string) (*Connection, error) {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	for _, c := range s.connections {
		if c.id == id && c.valid {
			return c, nil
		}
	}
	return nil, ErrConnectionNotFound
}

// Connections returns the valid cached connections in server order
func (s *Session) Connections() []*Connection {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	out := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		if c.valid {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionCount returns the number of valid cached connections
func (s *Session) ConnectionCount() int {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	n := 0
	for _, c := range s.connections {
		if c.valid {
			n++
		}
	}
	return n
}

// CreateWebRTCConnection creates a WEBRTC connection and returns it with its token
func (s *Session) CreateWebRTCConnection(ctx context.Context, opt WebRTCConnectionOption) (*Connection, error) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return nil, ErrSessionNotFound
	}
	role, err := resolveRole(opt.Role)
	if err != nil {
		return nil, err
	}
	return s.createConnection(ctx, connectionRequest{
		Type:           ConnectionTypeWebRTC,
		Data:           opt.Data,
		Role:           role,
		Record:         opt.Record,
		KurentoOptions: opt.KurentoOptions,
	})
}

// CreateIPCamConnection publishes an IP camera into the session
func (s *Session) CreateIPCamConnection(ctx context.Context, opt IPCamConnectionOption) (*Connection, error) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return nil, ErrSessionNotFound
	}
	if opt.RTSPURI == "" {
		return nil, invalidArgumentf("rtsp uri is required")
	}
	if opt.NetworkCache != nil && *opt.NetworkCache < 0 {
		return nil, invalidArgumentf("network cache must not be negative")
	}
	return s.createConnection(ctx, connectionRequest{
		Type:                    ConnectionTypeIPCam,
		Data:                    opt.Data,
		RTSPURI:                 opt.RTSPURI,
		AdaptativeBitrate:       opt.AdaptativeBitrate,
		OnlyPlayWithSubscribers: opt.OnlyPlayWithSubscribers,
		NetworkCache:            opt.NetworkCache,
	})
}

func (s *Session) createConnection(ctx context.Context, req connectionRequest) (*Connection, error) {
	res, err := s.g.transport.do(ctx, http.MethodPost, "connection", pathf(constants.PathConnections, s.id), req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res, statusMap{
		http.StatusBadRequest: ErrInvalidArgument,
		http.StatusNotFound:   ErrSessionNotFound,
	}); err != nil {
		return nil, s.notFound(err, "create connection")
	}
	raw, err := decodeRaw(res.body)
	if err != nil {
		return nil, err
	}
	var snap connectionSnapshot
	if err := decodeInto(res.body, &snap); err != nil {
		return nil, err
	}
	conn, err := newConnection(s.g, s.id, snap, raw)
	if err != nil {
		return nil, err
	}
	s.connections = append(s.connections, conn)
	s.last = nil
	s.g.logger.Info("connection created",
		zap.String("session_id", s.id),
		zap.String("connection_id", conn.id),
		zap.String("type", string(conn.typ)))
	return conn, nil
}

// GenerateToken asks the server for a participant token
func (s *Session) GenerateToken(ctx context.Context, opt TokenOption) (string, error) {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return "", ErrSessionNotFound
	}
	role, err := resolveRole(opt.Role)
	if err != nil {
		return "", err
	}
	res, err := s.g.transport.do(ctx, http.MethodPost, "tokens", constants.PathTokens, tokenRequest{
		Session:        s.id,
		Role:           role,
		Data:           opt.Data,
		KurentoOptions: opt.KurentoOptions,
	})
	if err != nil {
		return "", err
	}
	if err := checkStatus(res, statusMap{
		http.StatusBadRequest: ErrInvalidArgument,
		http.StatusNotFound:   ErrSessionNotFound,
	}); err != nil {
		return "", s.notFound(err, "generate token")
	}
	var tok tokenSnapshot
	if err := decodeInto(res.body, &tok); err != nil {
		return "", err
	}
	token := firstNonEmpty(tok.Token, tok.ID)
	if token == "" {
		return "", ErrUnexpectedResponse.WithDetails("body", string(res.body))
	}
	return token, nil
}

// Signal sends a signal to the given connections, or to everyone when opt.To is nil.
// An unknown target yields ErrConnectionNotFound and leaves the session valid.
func (s *Session) Signal(ctx context.Context, opt SignalOption) error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()

	if !s.valid {
		return ErrSessionNotFound
	}
	var to []string
	if opt.To != nil {
		to = make([]string, 0, len(opt.To))
		for _, c := range opt.To {
			to = append(to, c.id)
		}
	}
	return s.notFound(sendSignal(ctx, s.g, s.id, opt.Type, opt.Data, to), "signal")
}

// sendSignal posts a signal. A nil to broadcasts; an empty one targets nobody.
// The caller holds the lock and handles invalidation.
func sendSignal(ctx context.Context, g *graph, sessionID, typ, data string, to []string) error {
	req := signalRequest{
		Session: sessionID,
		Type:    typ,
		Data:    data,
	}
	if to != nil {
		req.To = &to
	}
	res, err := g.transport.do(ctx, http.MethodPost, "signal", constants.PathSignal, req)
	if err != nil {
		return err
	}
	return checkStatus(res, statusMap{
		http.StatusBadRequest:    ErrInvalidArgument,
		http.StatusNotFound:      ErrSessionNotFound,
		http.StatusNotAcceptable: ErrConnectionNotFound,
	})
}

// ID returns the session id
func (s *Session) ID() string {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.id
}

// CreatedAt returns when the session was created, in UTC
func (s *Session) CreatedAt() time.Time {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.createdAt
}

// MediaMode returns ROUTED or RELAYED
func (s *Session) MediaMode() MediaMode {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.mediaMode
}

// RecordingMode returns ALWAYS or MANUAL
func (s *Session) RecordingMode() RecordingMode {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.recordingMode
}

// DefaultOutputMode returns the default recording output mode
func (s *Session) DefaultOutputMode() OutputMode {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.defaultOutputMode
}

// DefaultRecordingLayout returns the default layout for composed recordings
func (s *Session) DefaultRecordingLayout() string {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.defaultRecordingLayout
}

// DefaultCustomLayout returns the custom layout path, if any
func (s *Session) DefaultCustomLayout() string {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.defaultCustomLayout
}

// CustomSessionID returns the id requested at creation, if any
func (s *Session) CustomSessionID() string {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.customSessionID
}

// IsBeingRecorded reports the recording flag of the last snapshot
func (s *Session) IsBeingRecorded() bool {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.recording
}

// IsValid reports whether the session is still believed to exist
func (s *Session) IsValid() bool {
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	return s.valid
}
