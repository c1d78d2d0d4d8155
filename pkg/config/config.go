package config

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/LingByte/LingVidu/pkg/logger"
	"github.com/LingByte/LingVidu/pkg/utils"
)

// OpenViduConfig holds the target server and request settings
type OpenViduConfig struct {
	URL            string        `json:"url"`
	Secret         string        `json:"-"`
	Timeout        time.Duration `json:"timeout"`         // read timeout, applied to every request
	ConnectTimeout time.Duration `json:"connect_timeout"` // dial timeout
	InitialFetch   bool          `json:"initial_fetch"`
	WatchSpec      string        `json:"watch_spec"` // cron spec used by the watcher
}

var GlobalConfig *Config

// Config System common config
type Config struct {
	OpenVidu   OpenViduConfig   // OpenVidu target configuration
	Log        logger.LogConfig // Log configuration
	Mode       string           `env:"MODE"`
	ServerName string           `env:"SERVER_NAME"`
}

func Load() error {
	// 1. .env files are optional; every value has a default
	mode := utils.GetStringOrDefault(constants.ENV_MODE, "development")
	if err := utils.LoadEnv(mode); err != nil {
		log.Printf("Note: %v (using environment and default values)", err)
	}
	// 2. global configuration
	GlobalConfig = &Config{
		OpenVidu: OpenViduConfig{
			URL:            utils.GetStringOrDefault(constants.ENV_OPENVIDU_URL, "https://localhost:4443/openvidu/api/"),
			Secret:         utils.GetEnv(constants.ENV_OPENVIDU_SECRET),
			Timeout:        utils.GetDurationOrDefault(constants.ENV_OPENVIDU_TIMEOUT, constants.DefaultTimeout),
			ConnectTimeout: utils.GetDurationOrDefault(constants.ENV_OPENVIDU_CONNECT_TIMEOUT, constants.DefaultConnectTimeout),
			InitialFetch:   utils.GetBoolOrDefault(constants.ENV_OPENVIDU_INITIAL_FETCH, true),
			WatchSpec:      utils.GetStringOrDefault(constants.ENV_OPENVIDU_WATCH_SPEC, constants.DefaultWatchSpec),
		},
		Log: logger.LogConfig{
			Level:      utils.GetStringOrDefault(constants.ENV_LOG_LEVEL, "info"),
			Filename:   utils.GetStringOrDefault(constants.ENV_LOG_FILENAME, ""),
			MaxSize:    utils.GetIntOrDefault(constants.ENV_LOG_MAX_SIZE, 100),
			MaxAge:     utils.GetIntOrDefault(constants.ENV_LOG_MAX_AGE, 30),
			MaxBackups: utils.GetIntOrDefault(constants.ENV_LOG_MAX_BACKUPS, 5),
			Daily:      utils.GetBoolOrDefault(constants.ENV_LOG_DAILY, false),
		},
		Mode:       mode,
		ServerName: utils.GetStringOrDefault(constants.ENV_SERVER_NAME, constants.ClientName),
	}
	return nil
}

// Validate checks the fields required to reach a server
func (c *Config) Validate() error {
	if c.OpenVidu.URL == "" {
		return fmt.Errorf("config: %s is required", constants.ENV_OPENVIDU_URL)
	}
	u, err := url.Parse(c.OpenVidu.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL, got %q", constants.ENV_OPENVIDU_URL, c.OpenVidu.URL)
	}
	if c.OpenVidu.Secret == "" {
		return fmt.Errorf("config: %s is required", constants.ENV_OPENVIDU_SECRET)
	}
	if c.OpenVidu.Timeout < 0 || c.OpenVidu.ConnectTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}
