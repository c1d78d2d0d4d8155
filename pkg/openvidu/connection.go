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

// ConnectionType tags the variant of a Connection
type ConnectionType string

const (
	ConnectionTypeWebRTC ConnectionType = "WEBRTC"
	ConnectionTypeIPCam  ConnectionType = "IPCAM"
)

// WebRTCInfo holds the fields only a WEBRTC connection has
type WebRTCInfo struct {
	Token          string          `json:"token" yaml:"token"`
	Role           Role            `json:"role" yaml:"role"`
	ClientData     *string         `json:"clientData" yaml:"clientData"`
	Record         bool            `json:"record" yaml:"record"`
	KurentoOptions *KurentoOptions `json:"kurentoOptions,omitempty" yaml:"kurentoOptions,omitempty"`
}

// IPCamInfo holds the fields only an IPCAM connection has
type IPCamInfo struct {
	RTSPURI                 string `json:"rtspUri" yaml:"rtspUri"`
	AdaptativeBitrate       bool   `json:"adaptativeBitrate" yaml:"adaptativeBitrate"`
	OnlyPlayWithSubscribers bool   `json:"onlyPlayWithSubscribers" yaml:"onlyPlayWithSubscribers"`
	NetworkCache            int    `json:"networkCache" yaml:"networkCache"`
}

// Connection is a cached participant of a session: a browser (WEBRTC) or an
// IP camera (IPCAM). It knows its session by id only.
type Connection struct {
	g *graph

	id          string
	sessionID   string
	typ         ConnectionType
	status      string
	createdAt   time.Time
	activeAt    *time.Time
	location    string
	platform    string
	serverData  *string
	webrtc      *WebRTCInfo
	ipcam       *IPCamInfo
	publishers  []Publisher
	subscribers []Subscriber

	valid bool
	last  interface{}
}

// connectionType resolves the variant tag. Old servers send no tag; their
// IP cameras are recognizable by platform or RTSP URI.
func connectionType(snap connectionSnapshot) (ConnectionType, error) {
	switch ConnectionType(snap.Type) {
	case ConnectionTypeWebRTC:
		return ConnectionTypeWebRTC, nil
	case ConnectionTypeIPCam:
		return ConnectionTypeIPCam, nil
	case "":
		if snap.Platform == "IPCAM" || snap.RTSPURI != "" {
			return ConnectionTypeIPCam, nil
		}
		return ConnectionTypeWebRTC, nil
	}
	return "", ErrUnknownConnectionType.WithDetails("type", snap.Type)
}

func newConnection(g *graph, sessionID string, snap connectionSnapshot, raw interface{}) (*Connection, error) {
	typ, err := connectionType(snap)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		g:          g,
		id:         firstNonEmpty(snap.ID, snap.ConnectionID),
		sessionID:  firstNonEmpty(snap.SessionID, sessionID),
		typ:        typ,
		status:     snap.Status,
		createdAt:  millis(snap.CreatedAt),
		location:   snap.Location,
		platform:   snap.Platform,
		serverData: snap.ServerData,
		valid:      true,
		last:       raw,
	}
	if snap.ActiveAt != nil {
		t := millis(*snap.ActiveAt)
		c.activeAt = &t
	}

	switch typ {
	case ConnectionTypeWebRTC:
		info := &WebRTCInfo{
			Role:           Role(snap.Role),
			ClientData:     snap.ClientData,
			Record:         snap.Record,
			KurentoOptions: snap.KurentoOptions,
		}
		if snap.Token != nil {
			info.Token = *snap.Token
		}
		c.webrtc = info
	case ConnectionTypeIPCam:
		c.ipcam = &IPCamInfo{
			RTSPURI:                 snap.RTSPURI,
			AdaptativeBitrate:       snap.AdaptativeBitrate,
			OnlyPlayWithSubscribers: snap.OnlyPlayWithSubscribers,
			NetworkCache:            snap.NetworkCache,
		}
	}

	c.publishers = make([]Publisher, 0, len(snap.Publishers))
	for _, ps := range snap.Publishers {
		c.publishers = append(c.publishers, Publisher{
			g:            g,
			SessionID:    c.sessionID,
			StreamID:     ps.StreamID,
			CreatedAt:    millis(ps.CreatedAt),
			MediaOptions: ps.MediaOptions,
			RTSPURI:      ps.RTSPURI,
		})
	}
	c.subscribers = make([]Subscriber, 0, len(snap.Subscribers))
	for _, ss := range snap.Subscribers {
		c.subscribers = append(c.subscribers, Subscriber{
			SessionID: c.sessionID,
			StreamID:  ss.StreamID,
			CreatedAt: millis(ss.CreatedAt),
			Publisher: ss.Publisher,
		})
	}
	return c, nil
}

// assign copies fresh state into c, replacing publishers and subscribers wholesale
func (c *Connection) assign(fresh *Connection) {
	c.typ = fresh.typ
	c.status = fresh.status
	c.createdAt = fresh.createdAt
	c.activeAt = fresh.activeAt
	c.location = fresh.location
	c.platform = fresh.platform
	c.serverData = fresh.serverData
	c.webrtc = fresh.webrtc
	c.ipcam = fresh.ipcam
	c.publishers = fresh.publishers
	c.subscribers = fresh.subscribers
	c.last = fresh.last
}

func (c *Connection) invalidate(reason string) {
	if !c.valid {
		return
	}
	c.valid = false
	metrics.Invalidations.WithLabelValues("connection").Inc()
	c.g.logger.Debug("connection invalidated",
		zap.String("session_id", c.sessionID),
		zap.String("connection_id", c.id),
		zap.String("reason", reason))
}

// gone flips c invalid when err reports the connection or its session gone
func (c *Connection) gone(err error, reason string) error {
	if errors.Is(err, ErrConnectionNotFound) || errors.Is(err, ErrSessionNotFound) {
		c.invalidate(reason)
	}
	return err
}

var connectionStatuses = statusMap{
	http.StatusBadRequest: ErrSessionNotFound,
	http.StatusNotFound:   ErrConnectionNotFound,
}

// Fetch updates the connection from the server. It reports false when nothing changed.
func (c *Connection) Fetch(ctx context.Context) (changed bool, err error) {
	defer func() { metrics.ObserveFetch("connection", changed, err) }()

	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	if !c.valid {
		return false, ErrConnectionNotFound
	}
	res, err := c.g.transport.do(ctx, http.MethodGet, "connection", pathf(constants.PathConnection, c.sessionID, c.id), nil)
	if err != nil {
		return false, err
	}
	if err := checkStatus(res, connectionStatuses); err != nil {
		return false, c.gone(err, "fetch")
	}
	raw, err := decodeRaw(res.body)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(raw, c.last) {
		return false, nil
	}
	var snap connectionSnapshot
	if err := decodeInto(res.body, &snap); err != nil {
		return false, err
	}
	fresh, err := newConnection(c.g, c.sessionID, snap, raw)
	if err != nil {
		return false, err
	}
	c.assign(fresh)
	return true, nil
}

// ForceDisconnect removes the participant from the session
func (c *Connection) ForceDisconnect(ctx context.Context) error {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	if !c.valid {
		return ErrConnectionNotFound
	}
	res, err := c.g.transport.do(ctx, http.MethodDelete, "connection", pathf(constants.PathConnection, c.sessionID, c.id), nil)
	if err != nil {
		return err
	}
	if err := checkStatus(res, connectionStatuses); err != nil {
		return c.gone(err, "disconnect")
	}
	c.invalidate("disconnected")
	c.g.logger.Info("connection disconnected",
		zap.String("session_id", c.sessionID),
		zap.String("connection_id", c.id))
	return nil
}

// Signal sends a signal to this connection only
func (c *Connection) Signal(ctx context.Context, typ, data string) error {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	if !c.valid {
		return ErrConnectionNotFound
	}
	return c.gone(sendSignal(ctx, c.g, c.sessionID, typ, data, []string{c.id}), "signal")
}

// ForceUnpublishAllStreams unpublishes every cached publisher of the
// connection, stopping at the first failure. The cache is not refreshed.
func (c *Connection) ForceUnpublishAllStreams(ctx context.Context) error {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	if !c.valid {
		return ErrConnectionNotFound
	}
	for _, p := range c.publishers {
		if err := p.unpublish(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the connection id
func (c *Connection) ID() string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.id
}

// Type returns WEBRTC or IPCAM
func (c *Connection) Type() ConnectionType {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.typ
}

// SessionID returns the id of the owning session
func (c *Connection) SessionID() string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.sessionID
}

// Status returns the server reported status, e.g. pending or active
func (c *Connection) Status() string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.status
}

// CreatedAt returns when the connection was created, in UTC
func (c *Connection) CreatedAt() time.Time {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.createdAt
}

// ActiveAt returns nil until the participant has joined
func (c *Connection) ActiveAt() *time.Time {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	if c.activeAt == nil {
		return nil
	}
	t := *c.activeAt
	return &t
}

// Location returns the geolocation reported by the server, if any
func (c *Connection) Location() string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.location
}

// Platform returns the client platform reported by the server
func (c *Connection) Platform() string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.platform
}

// ServerData returns nil when the server sent none
func (c *Connection) ServerData() *string {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return cloneString(c.serverData)
}

// WebRTC returns the WEBRTC fields, or false for an IPCAM connection
func (c *Connection) WebRTC() (WebRTCInfo, bool) {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	if c.webrtc == nil {
		return WebRTCInfo{}, false
	}
	info := *c.webrtc
	info.ClientData = cloneString(info.ClientData)
	info.KurentoOptions = info.KurentoOptions.clone()
	return info, true
}

// IPCam returns the IPCAM fields, or false for a WEBRTC connection
func (c *Connection) IPCam() (IPCamInfo, bool) {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	if c.ipcam == nil {
		return IPCamInfo{}, false
	}
	return *c.ipcam, true
}

// Publishers returns copies of the cached publishers
func (c *Connection) Publishers() []Publisher {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	out := make([]Publisher, len(c.publishers))
	for i, p := range c.publishers {
		p.MediaOptions = p.MediaOptions.clone()
		out[i] = p
	}
	return out
}

// Subscribers returns copies of the cached subscribers
func (c *Connection) Subscribers() []Subscriber {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return append([]Subscriber(nil), c.subscribers...)
}

// PublisherCount returns the number of published streams
func (c *Connection) PublisherCount() int {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return len(c.publishers)
}

// SubscriberCount returns the number of subscribed streams
func (c *Connection) SubscriberCount() int {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return len(c.subscribers)
}

// IsValid reports whether the connection is still believed to exist
func (c *Connection) IsValid() bool {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.valid
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
