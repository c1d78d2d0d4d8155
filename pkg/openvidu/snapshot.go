package openvidu

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Wire shapes of the REST API. Field names follow the server's JSON.

type sessionListSnapshot struct {
	NumberOfElements int               `json:"numberOfElements"`
	Content          []sessionSnapshot `json:"content"`
}

type sessionSnapshot struct {
	ID                     string `json:"id"`
	SessionID              string `json:"sessionId"` // servers before 2.16
	CreatedAt              int64  `json:"createdAt"`
	MediaMode              string `json:"mediaMode"`
	RecordingMode          string `json:"recordingMode"`
	DefaultOutputMode      string `json:"defaultOutputMode"`
	DefaultRecordingLayout string `json:"defaultRecordingLayout"`
	DefaultCustomLayout    string `json:"defaultCustomLayout"`
	CustomSessionID        string `json:"customSessionId"`
	Recording              bool   `json:"recording"`
	Connections            *struct {
		NumberOfElements int                  `json:"numberOfElements"`
		Content          []connectionSnapshot `json:"content"`
	} `json:"connections"`
}

type connectionSnapshot struct {
	ID                      string               `json:"id"`
	ConnectionID            string               `json:"connectionId"` // servers before 2.16
	Type                    string               `json:"type"`
	Status                  string               `json:"status"`
	SessionID               string               `json:"sessionId"`
	CreatedAt               int64                `json:"createdAt"`
	ActiveAt                *int64               `json:"activeAt"`
	Location                string               `json:"location"`
	Platform                string               `json:"platform"`
	Token                   *string              `json:"token"`
	ServerData              *string              `json:"serverData"`
	ClientData              *string              `json:"clientData"`
	Role                    string               `json:"role"`
	Record                  bool                 `json:"record"`
	KurentoOptions          *KurentoOptions      `json:"kurentoOptions"`
	RTSPURI                 string               `json:"rtspUri"`
	AdaptativeBitrate       bool                 `json:"adaptativeBitrate"`
	OnlyPlayWithSubscribers bool                 `json:"onlyPlayWithSubscribers"`
	NetworkCache            int                  `json:"networkCache"`
	Publishers              []publisherSnapshot  `json:"publishers"`
	Subscribers             []subscriberSnapshot `json:"subscribers"`
}

type publisherSnapshot struct {
	StreamID     string        `json:"streamId"`
	CreatedAt    int64         `json:"createdAt"`
	MediaOptions *MediaOptions `json:"mediaOptions"`
	RTSPURI      string        `json:"rtspUri"`
}

type subscriberSnapshot struct {
	StreamID  string `json:"streamId"`
	CreatedAt int64  `json:"createdAt"`
	Publisher string `json:"publisher"`
}

type tokenSnapshot struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Request bodies

type sessionRequest struct {
	CustomSessionID        string        `json:"customSessionId,omitempty"`
	MediaMode              MediaMode     `json:"mediaMode,omitempty"`
	RecordingMode          RecordingMode `json:"recordingMode,omitempty"`
	DefaultOutputMode      OutputMode    `json:"defaultOutputMode,omitempty"`
	DefaultRecordingLayout string        `json:"defaultRecordingLayout,omitempty"`
	DefaultCustomLayout    string        `json:"defaultCustomLayout,omitempty"`
}

type connectionRequest struct {
	Type                    ConnectionType  `json:"type"`
	Data                    string          `json:"data,omitempty"`
	Role                    Role            `json:"role,omitempty"`
	Record                  *bool           `json:"record,omitempty"`
	KurentoOptions          *KurentoOptions `json:"kurentoOptions,omitempty"`
	RTSPURI                 string          `json:"rtspUri,omitempty"`
	AdaptativeBitrate       *bool           `json:"adaptativeBitrate,omitempty"`
	OnlyPlayWithSubscribers *bool           `json:"onlyPlayWithSubscribers,omitempty"`
	NetworkCache            *int            `json:"networkCache,omitempty"`
}

type tokenRequest struct {
	Session        string          `json:"session"`
	Role           Role            `json:"role"`
	Data           string          `json:"data,omitempty"`
	KurentoOptions *KurentoOptions `json:"kurentoOptions,omitempty"`
}

type signalRequest struct {
	Session string    `json:"session"`
	Type    string    `json:"type,omitempty"`
	Data    string    `json:"data,omitempty"`
	To      *[]string `json:"to,omitempty"`
}

// decodeRaw decodes a body into generic values, the form used for change detection
func decodeRaw(body []byte) (interface{}, error) {
	var v interface{}
	if err := sonic.Unmarshal(body, &v); err != nil {
		return nil, ErrUnexpectedResponse.WithCause(fmt.Errorf("decode body: %w", err)).WithDetails("body", string(body))
	}
	return v, nil
}

func decodeInto(body []byte, v interface{}) error {
	if err := sonic.Unmarshal(body, v); err != nil {
		return ErrUnexpectedResponse.WithCause(fmt.Errorf("decode body: %w", err)).WithDetails("body", string(body))
	}
	return nil
}

// rawField and rawIndex walk a generic payload; missing parts yield nil
func rawField(v interface{}, key string) interface{} {
	m, _ := v.(map[string]interface{})
	return m[key]
}

func rawIndex(v interface{}, i int) interface{} {
	l, _ := v.([]interface{})
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

func millis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
