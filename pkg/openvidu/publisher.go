package openvidu

import (
	"context"
	"net/http"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"go.uber.org/zap"
)

// MediaOptions describes a published stream. Nullable members are pointers.
type MediaOptions struct {
	HasAudio                bool                   `json:"hasAudio" yaml:"hasAudio"`
	AudioActive             bool                   `json:"audioActive" yaml:"audioActive"`
	HasVideo                bool                   `json:"hasVideo" yaml:"hasVideo"`
	VideoActive             bool                   `json:"videoActive" yaml:"videoActive"`
	TypeOfVideo             string                 `json:"typeOfVideo" yaml:"typeOfVideo"`
	FrameRate               *float64               `json:"frameRate" yaml:"frameRate"`
	VideoDimensions         *string                `json:"videoDimensions" yaml:"videoDimensions"`
	Filter                  map[string]interface{} `json:"filter" yaml:"filter"`
	AdaptativeBitrate       *bool                  `json:"adaptativeBitrate,omitempty" yaml:"adaptativeBitrate,omitempty"`
	OnlyPlayWithSubscribers *bool                  `json:"onlyPlayWithSubscribers,omitempty" yaml:"onlyPlayWithSubscribers,omitempty"`
}

func (m *MediaOptions) clone() *MediaOptions {
	if m == nil {
		return nil
	}
	cp := *m
	if m.FrameRate != nil {
		v := *m.FrameRate
		cp.FrameRate = &v
	}
	cp.VideoDimensions = cloneString(m.VideoDimensions)
	if m.Filter != nil {
		cp.Filter = make(map[string]interface{}, len(m.Filter))
		for k, v := range m.Filter {
			cp.Filter[k] = v
		}
	}
	if m.AdaptativeBitrate != nil {
		v := *m.AdaptativeBitrate
		cp.AdaptativeBitrate = &v
	}
	if m.OnlyPlayWithSubscribers != nil {
		v := *m.OnlyPlayWithSubscribers
		cp.OnlyPlayWithSubscribers = &v
	}
	return &cp
}

// Publisher is a stream sent by a connection. It is a snapshot value; a
// refresh of its connection replaces it.
type Publisher struct {
	SessionID    string        `json:"sessionId" yaml:"sessionId"`
	StreamID     string        `json:"streamId" yaml:"streamId"`
	CreatedAt    time.Time     `json:"createdAt" yaml:"createdAt"`
	MediaOptions *MediaOptions `json:"mediaOptions,omitempty" yaml:"mediaOptions,omitempty"`
	RTSPURI      string        `json:"rtspUri,omitempty" yaml:"rtspUri,omitempty"` // IPCAM only

	g *graph
}

// ForceUnpublish stops the stream on the server. Streams of IPCAM
// connections cannot be unpublished and yield ErrStreamOperationNotAllowed.
func (p Publisher) ForceUnpublish(ctx context.Context) error {
	if p.g == nil {
		return ErrStreamNotFound
	}
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	return p.unpublish(ctx)
}

// unpublish runs with the lock held
func (p Publisher) unpublish(ctx context.Context) error {
	res, err := p.g.transport.do(ctx, http.MethodDelete, "stream", pathf(constants.PathStream, p.SessionID, p.StreamID), nil)
	if err != nil {
		return err
	}
	if err := checkStatus(res, statusMap{
		http.StatusBadRequest:       ErrSessionNotFound,
		http.StatusNotFound:         ErrStreamNotFound,
		http.StatusMethodNotAllowed: ErrStreamOperationNotAllowed,
	}); err != nil {
		return err
	}
	p.g.logger.Info("stream unpublished",
		zap.String("session_id", p.SessionID),
		zap.String("stream_id", p.StreamID))
	return nil
}

// Subscriber is a stream received by a connection
type Subscriber struct {
	SessionID string    `json:"sessionId" yaml:"sessionId"`
	StreamID  string    `json:"streamId" yaml:"streamId"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Publisher string    `json:"publisher,omitempty" yaml:"publisher,omitempty"` // stream id subscribed to
}
