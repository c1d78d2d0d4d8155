package openvidu

import (
	"context"
	"net/http"
	"reflect"
	"sort"
	"sync"

	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/LingByte/LingVidu/pkg/logger"
	"github.com/LingByte/LingVidu/pkg/metrics"
	"go.uber.org/zap"
)

// graph is shared by a Client and every entity built from it. mu guards the
// whole cached tree and is held across the HTTP round trip of a mutating call.
type graph struct {
	mu        sync.RWMutex
	transport *transport
	logger    *zap.Logger
}

// Client mirrors one OpenVidu server
type Client struct {
	g        *graph
	sessions map[string]*Session
	last     interface{} // decoded body of the last changed sessions fetch
}

// NewClient creates a client for the server at opt.URL
func NewClient(ctx context.Context, opt ClientOption) (*Client, error) {
	if opt.Secret == "" {
		return nil, invalidArgumentf("secret is required")
	}
	lg := opt.Logger
	if lg == nil {
		lg = logger.Named("openvidu")
	}
	tr, err := newTransport(opt.URL, opt.Secret, opt.Timeout, opt.HTTPClient, lg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		g:        &graph{transport: tr, logger: lg},
		sessions: make(map[string]*Session),
	}
	lg.Debug("client created", zap.String("url", tr.baseURL))

	if opt.InitialFetch {
		if _, err := c.Fetch(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Fetch updates the cached sessions from the server. It reports false when
// the server answered exactly what it answered last time.
func (c *Client) Fetch(ctx context.Context) (changed bool, err error) {
	defer func() { metrics.ObserveFetch("client", changed, err) }()

	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	res, err := c.g.transport.do(ctx, http.MethodGet, "sessions", constants.PathSessions, nil)
	if err != nil {
		return false, err
	}
	if err := checkStatus(res, nil); err != nil {
		return false, err
	}
	raw, err := decodeRaw(res.body)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(raw, c.last) {
		return false, nil
	}

	var list sessionListSnapshot
	if err := decodeInto(res.body, &list); err != nil {
		return false, err
	}
	rawContent := rawField(raw, "content")
	fresh := make([]*Session, 0, len(list.Content))
	for i, snap := range list.Content {
		s, err := newSession(c.g, snap, rawIndex(rawContent, i))
		if err != nil {
			return false, err
		}
		fresh = append(fresh, s)
	}

	next := make(map[string]*Session, len(fresh))
	for _, fs := range fresh {
		if cur, ok := c.sessions[fs.id]; ok && cur.valid {
			cur.assign(fs)
			next[fs.id] = cur
			continue
		}
		next[fs.id] = fs
	}
	for id := range c.sessions {
		if _, ok := next[id]; !ok {
			c.g.logger.Debug("session no longer listed", zap.String("session_id", id))
		}
	}
	c.sessions = next
	c.last = raw
	metrics.TrackedSessions.Set(float64(len(next)))
	return true, nil
}

// GetSession returns a tracked, valid session without contacting the server
func (c *Client) GetSession(id string) (*Session, error) {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok || !s.valid {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CreateSession creates a session on the server and starts tracking it
func (c *Client) CreateSession(ctx context.Context, opt SessionOption) (*Session, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}

	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	res, err := c.g.transport.do(ctx, http.MethodPost, "sessions", constants.PathSessions, sessionRequest{
		CustomSessionID:        opt.CustomSessionID,
		MediaMode:              opt.MediaMode,
		RecordingMode:          opt.RecordingMode,
		DefaultOutputMode:      opt.DefaultOutputMode,
		DefaultRecordingLayout: opt.DefaultRecordingLayout,
		DefaultCustomLayout:    opt.DefaultCustomLayout,
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res, statusMap{
		http.StatusBadRequest: ErrInvalidArgument,
		http.StatusConflict:   ErrSessionAlreadyExists,
	}); err != nil {
		return nil, err
	}
	raw, err := decodeRaw(res.body)
	if err != nil {
		return nil, err
	}
	var snap sessionSnapshot
	if err := decodeInto(res.body, &snap); err != nil {
		return nil, err
	}
	s, err := newSession(c.g, snap, raw)
	if err != nil {
		return nil, err
	}
	c.sessions[s.id] = s
	c.last = nil
	metrics.TrackedSessions.Set(float64(len(c.sessions)))
	c.g.logger.Info("session created", zap.String("session_id", s.id))
	return s, nil
}

// Sessions returns the valid tracked sessions, oldest first
func (c *Client) Sessions() []*Session {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.valid {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.Before(out[j].createdAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

// SessionCount returns the number of valid tracked sessions
func (c *Client) SessionCount() int {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	n := 0
	for _, s := range c.sessions {
		if s.valid {
			n++
		}
	}
	return n
}

// GetConfig returns the server configuration. It is never cached.
func (c *Client) GetConfig(ctx context.Context) (map[string]interface{}, error) {
	res, err := c.g.transport.do(ctx, http.MethodGet, "config", constants.PathConfig, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res, nil); err != nil {
		return nil, err
	}
	cfg := make(map[string]interface{})
	if err := decodeInto(res.body, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
