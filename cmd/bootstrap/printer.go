package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LingByte/LingVidu/pkg/config"
	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/LingByte/LingVidu/pkg/logger"
	"go.uber.org/zap"
)

// LogConfigInfo Print global configuration information. The secret is never logged.
func LogConfigInfo() {
	cfg := config.GlobalConfig
	if cfg == nil {
		return
	}
	logger.Debug("system config load finished")

	logger.Debug("openvidu config",
		zap.String("url", cfg.OpenVidu.URL),
		zap.Bool("secret_set", cfg.OpenVidu.Secret != ""),
		zap.Duration("timeout", cfg.OpenVidu.Timeout),
		zap.Duration("connect_timeout", cfg.OpenVidu.ConnectTimeout),
		zap.Bool("initial_fetch", cfg.OpenVidu.InitialFetch),
		zap.String("watch_spec", cfg.OpenVidu.WatchSpec),
	)

	logger.Debug("log config",
		zap.String("log_level", cfg.Log.Level),
		zap.String("log_filename", cfg.Log.Filename),
		zap.Int("log_max_size", cfg.Log.MaxSize),
		zap.Int("log_max_age", cfg.Log.MaxAge),
		zap.Int("log_max_backups", cfg.Log.MaxBackups),
	)
}

// EnsureBannerFile writes a plain banner when filename does not exist yet
func EnsureBannerFile(filename string, defaultText string) error {
	_, err := os.Stat(filename)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if defaultText == "" {
		defaultText = constants.ClientName
	}
	text := fmt.Sprintf("== %s ==\n%s %s\n", defaultText, constants.ClientName, constants.ClientVersion)
	return os.WriteFile(filename, []byte(text), 0o644)
}

// PrintBannerFromFile Read file and print to w, auto-generate if file doesn't exist
func PrintBannerFromFile(w io.Writer, filename string, defaultText string) error {
	// Ensure banner file exists, generate if it doesn't
	if err := EnsureBannerFile(filename, defaultText); err != nil {
		return fmt.Errorf("failed to ensure banner file: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")

	colors := []string{
		"\x1b[38;5;165m",
		"\x1b[38;5;189m",
		"\x1b[38;5;207m",
		"\x1b[38;5;219m",
		"\x1b[38;5;225m",
		"\x1b[38;5;231m",
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		color := colors[i%len(colors)]
		fmt.Fprintln(w, color+line+"\x1b[0m")
	}
	return nil
}
