package main

import (
	"fmt"
	"time"

	"github.com/LingByte/LingVidu/pkg/openvidu"
	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

type sessionView struct {
	ID                     string           `json:"id" yaml:"id"`
	CreatedAt              time.Time        `json:"createdAt" yaml:"createdAt"`
	MediaMode              string           `json:"mediaMode,omitempty" yaml:"mediaMode,omitempty"`
	RecordingMode          string           `json:"recordingMode,omitempty" yaml:"recordingMode,omitempty"`
	DefaultOutputMode      string           `json:"defaultOutputMode,omitempty" yaml:"defaultOutputMode,omitempty"`
	DefaultRecordingLayout string           `json:"defaultRecordingLayout,omitempty" yaml:"defaultRecordingLayout,omitempty"`
	CustomSessionID        string           `json:"customSessionId,omitempty" yaml:"customSessionId,omitempty"`
	Recording              bool             `json:"recording" yaml:"recording"`
	Connections            []connectionView `json:"connections" yaml:"connections"`
}

type connectionView struct {
	ID          string                `json:"id" yaml:"id"`
	Type        string                `json:"type" yaml:"type"`
	Status      string                `json:"status" yaml:"status"`
	CreatedAt   time.Time             `json:"createdAt" yaml:"createdAt"`
	ActiveAt    *time.Time            `json:"activeAt" yaml:"activeAt"`
	Platform    string                `json:"platform,omitempty" yaml:"platform,omitempty"`
	ServerData  *string               `json:"serverData" yaml:"serverData"`
	WebRTC      *openvidu.WebRTCInfo  `json:"webrtc,omitempty" yaml:"webrtc,omitempty"`
	IPCam       *openvidu.IPCamInfo   `json:"ipcam,omitempty" yaml:"ipcam,omitempty"`
	Publishers  []openvidu.Publisher  `json:"publishers" yaml:"publishers"`
	Subscribers []openvidu.Subscriber `json:"subscribers" yaml:"subscribers"`
}

func newSessionView(s *openvidu.Session) sessionView {
	v := sessionView{
		ID:                     s.ID(),
		CreatedAt:              s.CreatedAt(),
		MediaMode:              string(s.MediaMode()),
		RecordingMode:          string(s.RecordingMode()),
		DefaultOutputMode:      string(s.DefaultOutputMode()),
		DefaultRecordingLayout: s.DefaultRecordingLayout(),
		CustomSessionID:        s.CustomSessionID(),
		Recording:              s.IsBeingRecorded(),
		Connections:            make([]connectionView, 0),
	}
	for _, c := range s.Connections() {
		v.Connections = append(v.Connections, newConnectionView(c))
	}
	return v
}

func newConnectionView(c *openvidu.Connection) connectionView {
	v := connectionView{
		ID:          c.ID(),
		Type:        string(c.Type()),
		Status:      c.Status(),
		CreatedAt:   c.CreatedAt(),
		ActiveAt:    c.ActiveAt(),
		Platform:    c.Platform(),
		ServerData:  c.ServerData(),
		Publishers:  c.Publishers(),
		Subscribers: c.Subscribers(),
	}
	if info, ok := c.WebRTC(); ok {
		v.WebRTC = &info
	}
	if info, ok := c.IPCam(); ok {
		v.IPCam = &info
	}
	return v
}

// print writes v in the selected output format
func (a *app) print(v interface{}) error {
	var (
		out []byte
		err error
	)
	switch a.format {
	case "yaml":
		out, err = yaml.Marshal(v)
	default:
		out, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = a.out.Write(out)
	return err
}
