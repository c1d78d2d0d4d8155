package constants

import "time"

const (
	ClientName    = "LingVidu"
	ClientVersion = "0.3.0"

	// BasicAuthUser is the fixed username OpenVidu expects with the secret
	BasicAuthUser = "OPENVIDUAPP"

	DefaultTimeout        = 10 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultWatchSpec      = "@every 5s"
)

// REST paths, relative to the configured base URL
const (
	PathSessions    = "sessions"
	PathSession     = "sessions/%s"
	PathConnections = "sessions/%s/connection"
	PathConnection  = "sessions/%s/connection/%s"
	PathStream      = "sessions/%s/stream/%s"
	PathSignal      = "signal"
	PathTokens      = "tokens"
	PathConfig      = "config"
	HeaderRequestID = "X-Request-Id"
	ContentTypeJSON = "application/json"
	MaxBodyBytes    = 64 << 20
)

// Environment keys
const (
	ENV_MODE                     = "MODE"
	ENV_OPENVIDU_URL             = "OPENVIDU_URL"
	ENV_OPENVIDU_SECRET          = "OPENVIDU_SECRET"
	ENV_OPENVIDU_TIMEOUT         = "OPENVIDU_TIMEOUT"
	ENV_OPENVIDU_CONNECT_TIMEOUT = "OPENVIDU_CONNECT_TIMEOUT"
	ENV_OPENVIDU_INITIAL_FETCH   = "OPENVIDU_INITIAL_FETCH"
	ENV_OPENVIDU_WATCH_SPEC      = "OPENVIDU_WATCH_SPEC"
	ENV_LOG_LEVEL                = "LOG_LEVEL"
	ENV_LOG_FILENAME             = "LOG_FILENAME"
	ENV_LOG_MAX_SIZE             = "LOG_MAX_SIZE"
	ENV_LOG_MAX_AGE              = "LOG_MAX_AGE"
	ENV_LOG_MAX_BACKUPS          = "LOG_MAX_BACKUPS"
	ENV_LOG_DAILY                = "LOG_DAILY"
	ENV_SERVER_NAME              = "SERVER_NAME"
)
