package openvidu

import (
	"net/http"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"go.uber.org/zap"
)

// Role of a WEBRTC participant
type Role string

const (
	RoleSubscriber Role = "SUBSCRIBER"
	RolePublisher  Role = "PUBLISHER"
	RoleModerator  Role = "MODERATOR"
)

func (r Role) valid() bool {
	switch r {
	case RoleSubscriber, RolePublisher, RoleModerator:
		return true
	}
	return false
}

// MediaMode tells whether streams go through the media server or peer to peer
type MediaMode string

const (
	MediaModeRouted  MediaMode = "ROUTED"
	MediaModeRelayed MediaMode = "RELAYED"
)

// RecordingMode tells whether a session is recorded as soon as it is joined
type RecordingMode string

const (
	RecordingModeAlways RecordingMode = "ALWAYS"
	RecordingModeManual RecordingMode = "MANUAL"
)

// OutputMode is the default recording output of a session
type OutputMode string

const (
	OutputModeComposed           OutputMode = "COMPOSED"
	OutputModeComposedQuickStart OutputMode = "COMPOSED_QUICK_START"
	OutputModeIndividual         OutputMode = "INDIVIDUAL"
)

// Timeout bounds every request. Connect limits dial and TLS handshake, Read
// limits the wait for response headers. Zero fields take the defaults.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
}

// TimeoutOf uses d for both phases
func TimeoutOf(d time.Duration) Timeout {
	return Timeout{Connect: d, Read: d}
}

func (t Timeout) withDefaults() Timeout {
	if t.Connect <= 0 {
		t.Connect = constants.DefaultConnectTimeout
	}
	if t.Read <= 0 {
		t.Read = constants.DefaultTimeout
	}
	return t
}

// ClientOption configures NewClient
type ClientOption struct {
	URL          string // base URL of the REST API, e.g. https://host:4443/openvidu/api/
	Secret       string
	Timeout      Timeout
	InitialFetch bool         // fetch sessions before NewClient returns
	Logger       *zap.Logger  // defaults to the global logger
	HTTPClient   *http.Client // overrides the client built from Timeout
}

// SessionOption configures Client.CreateSession. Empty fields are left to the server.
type SessionOption struct {
	CustomSessionID        string
	MediaMode              MediaMode
	RecordingMode          RecordingMode
	DefaultOutputMode      OutputMode
	DefaultRecordingLayout string
	DefaultCustomLayout    string
}

func (o SessionOption) validate() error {
	switch o.MediaMode {
	case "", MediaModeRouted, MediaModeRelayed:
	default:
		return invalidArgumentf("invalid media mode %q", o.MediaMode)
	}
	switch o.RecordingMode {
	case "", RecordingModeAlways, RecordingModeManual:
	default:
		return invalidArgumentf("invalid recording mode %q", o.RecordingMode)
	}
	switch o.DefaultOutputMode {
	case "", OutputModeComposed, OutputModeComposedQuickStart, OutputModeIndividual:
	default:
		return invalidArgumentf("invalid output mode %q", o.DefaultOutputMode)
	}
	return nil
}

// KurentoOptions limits bandwidth and filters for a WEBRTC connection.
// Nil fields are omitted on the wire.
type KurentoOptions struct {
	VideoMaxRecvBandwidth *int     `json:"videoMaxRecvBandwidth,omitempty" yaml:"videoMaxRecvBandwidth,omitempty"`
	VideoMinRecvBandwidth *int     `json:"videoMinRecvBandwidth,omitempty" yaml:"videoMinRecvBandwidth,omitempty"`
	VideoMaxSendBandwidth *int     `json:"videoMaxSendBandwidth,omitempty" yaml:"videoMaxSendBandwidth,omitempty"`
	VideoMinSendBandwidth *int     `json:"videoMinSendBandwidth,omitempty" yaml:"videoMinSendBandwidth,omitempty"`
	AllowedFilters        []string `json:"allowedFilters,omitempty" yaml:"allowedFilters,omitempty"`
}

func (k *KurentoOptions) clone() *KurentoOptions {
	if k == nil {
		return nil
	}
	cp := *k
	cp.AllowedFilters = append([]string(nil), k.AllowedFilters...)
	return &cp
}

// WebRTCConnectionOption configures Session.CreateWebRTCConnection
type WebRTCConnectionOption struct {
	Role           Role // defaults to PUBLISHER
	Data           string
	Record         *bool
	KurentoOptions *KurentoOptions
}

// IPCamConnectionOption configures Session.CreateIPCamConnection
type IPCamConnectionOption struct {
	RTSPURI                 string
	Data                    string
	AdaptativeBitrate       *bool
	OnlyPlayWithSubscribers *bool
	NetworkCache            *int // milliseconds
}

// TokenOption configures Session.GenerateToken
type TokenOption struct {
	Role           Role // defaults to PUBLISHER
	Data           string
	KurentoOptions *KurentoOptions
}

// SignalOption configures Session.Signal. A nil To broadcasts to every connection.
type SignalOption struct {
	Type string
	Data string
	To   []*Connection
}

func resolveRole(r Role) (Role, error) {
	if r == "" {
		return RolePublisher, nil
	}
	if !r.valid() {
		return "", invalidArgumentf("invalid role %q", r)
	}
	return r, nil
}
