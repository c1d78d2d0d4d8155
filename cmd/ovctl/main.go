package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/LingByte/LingVidu/cmd/bootstrap"
	"github.com/LingByte/LingVidu/pkg/config"
	"github.com/LingByte/LingVidu/pkg/logger"
	"github.com/LingByte/LingVidu/pkg/metrics"
	"github.com/LingByte/LingVidu/pkg/openvidu"
	"go.uber.org/zap"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"config":         {"config", runConfig},
	"sessions":       {"sessions", runSessions},
	"session":        {"session <session-id>", runSession},
	"create-session": {"create-session [-custom-id id] [-media-mode ROUTED|RELAYED] [-recording-mode ALWAYS|MANUAL] [-output-mode COMPOSED|INDIVIDUAL]", runCreateSession},
	"close":          {"close <session-id>", runClose},
	"token":          {"token [-role r] [-data d] <session-id>", runToken},
	"connect":        {"connect [-role r] [-data d] [-record] <session-id>", runConnect},
	"connect-ipcam":  {"connect-ipcam [-data d] [-adaptive-bitrate] [-only-play-with-subscribers] [-network-cache ms] <session-id> <rtsp-uri>", runConnectIPCam},
	"connection":     {"connection <session-id> <connection-id>", runConnection},
	"disconnect":     {"disconnect <session-id> <connection-id>", runDisconnect},
	"unpublish":      {"unpublish <session-id> <stream-id>", runUnpublish},
	"unpublish-all":  {"unpublish-all <session-id> <connection-id>", runUnpublishAll},
	"signal":         {"signal [-type t] [-data d] [-to id,id] <session-id>", runSignal},
	"watch":          {"watch [-spec cron] [-metrics-addr :9100]", runWatch},
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: ovctl [-mode m] [-o json|yaml] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	flag.PrintDefaults()
}

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	output := flag.String("o", "json", "output format (json, yaml)")
	flag.Usage = usage
	flag.Parse()
	if *mode != "" {
		os.Setenv("MODE", *mode)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}
	// 2. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	if err := config.GlobalConfig.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// 3. Load Log Configuration
	if err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()
	// 4. Print Configuration
	bootstrap.LogConfigInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config.GlobalConfig, *output, os.Stdout)
	if err != nil {
		logger.Error("client setup failed", zap.Error(err))
		os.Exit(1)
	}
	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	client *openvidu.Client
	cfg    *config.Config
	out    io.Writer
	format string
}

func newApp(ctx context.Context, cfg *config.Config, format string, out io.Writer) (*app, error) {
	if format != "json" && format != "yaml" {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	client, err := openvidu.NewClient(ctx, openvidu.ClientOption{
		URL:    cfg.OpenVidu.URL,
		Secret: cfg.OpenVidu.Secret,
		Timeout: openvidu.Timeout{
			Connect: cfg.OpenVidu.ConnectTimeout,
			Read:    cfg.OpenVidu.Timeout,
		},
		InitialFetch: cfg.OpenVidu.InitialFetch,
		Logger:       logger.Named("openvidu"),
	})
	if err != nil {
		return nil, err
	}
	return &app{client: client, cfg: cfg, out: out, format: format}, nil
}

// session looks the id up in the cache, fetching once when it is missing
func (a *app) session(ctx context.Context, id string) (*openvidu.Session, error) {
	s, err := a.client.GetSession(id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, openvidu.ErrSessionNotFound) {
		return nil, err
	}
	if _, err := a.client.Fetch(ctx); err != nil {
		return nil, err
	}
	return a.client.GetSession(id)
}

func (a *app) connection(ctx context.Context, sessionID, connectionID string) (*openvidu.Connection, error) {
	s, err := a.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.GetConnection(connectionID)
}

func parseArgs(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), n, fs.NArg())
	}
	return fs.Args(), nil
}

func runConfig(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(flag.NewFlagSet("config", flag.ContinueOnError), args, 0); err != nil {
		return err
	}
	cfg, err := a.client.GetConfig(ctx)
	if err != nil {
		return err
	}
	return a.print(cfg)
}

func runSessions(ctx context.Context, a *app, args []string) error {
	if _, err := parseArgs(flag.NewFlagSet("sessions", flag.ContinueOnError), args, 0); err != nil {
		return err
	}
	if _, err := a.client.Fetch(ctx); err != nil {
		return err
	}
	views := make([]sessionView, 0)
	for _, s := range a.client.Sessions() {
		views = append(views, newSessionView(s))
	}
	return a.print(views)
}

func runSession(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("session", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	if _, err := s.Fetch(ctx); err != nil {
		return err
	}
	return a.print(newSessionView(s))
}

func runCreateSession(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-session", flag.ContinueOnError)
	customID := fs.String("custom-id", "", "custom session id")
	mediaMode := fs.String("media-mode", "", "ROUTED or RELAYED")
	recordingMode := fs.String("recording-mode", "", "ALWAYS or MANUAL")
	outputMode := fs.String("output-mode", "", "COMPOSED or INDIVIDUAL")
	layout := fs.String("recording-layout", "", "default recording layout")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	s, err := a.client.CreateSession(ctx, openvidu.SessionOption{
		CustomSessionID:        *customID,
		MediaMode:              openvidu.MediaMode(strings.ToUpper(*mediaMode)),
		RecordingMode:          openvidu.RecordingMode(strings.ToUpper(*recordingMode)),
		DefaultOutputMode:      openvidu.OutputMode(strings.ToUpper(*outputMode)),
		DefaultRecordingLayout: *layout,
	})
	if err != nil {
		return err
	}
	return a.print(newSessionView(s))
}

func runClose(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("close", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	return s.Close(ctx)
}

func runToken(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	role := fs.String("role", "", "SUBSCRIBER, PUBLISHER or MODERATOR")
	data := fs.String("data", "", "server data attached to the participant")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	token, err := s.GenerateToken(ctx, openvidu.TokenOption{Role: openvidu.Role(strings.ToUpper(*role)), Data: *data})
	if err != nil {
		return err
	}
	return a.print(map[string]string{"session": rest[0], "token": token})
}

func runConnect(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	role := fs.String("role", "", "SUBSCRIBER, PUBLISHER or MODERATOR")
	data := fs.String("data", "", "server data attached to the connection")
	record := fs.Bool("record", true, "include the connection in recordings")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	opt := openvidu.WebRTCConnectionOption{Role: openvidu.Role(strings.ToUpper(*role)), Data: *data}
	if !*record {
		opt.Record = record
	}
	conn, err := s.CreateWebRTCConnection(ctx, opt)
	if err != nil {
		return err
	}
	return a.print(newConnectionView(conn))
}

func runConnectIPCam(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("connect-ipcam", flag.ContinueOnError)
	data := fs.String("data", "", "server data attached to the connection")
	adaptive := fs.Bool("adaptive-bitrate", true, "adapt the bitrate to network conditions")
	onlyWithSubscribers := fs.Bool("only-play-with-subscribers", true, "pull the feed only while someone subscribes")
	networkCache := fs.Int("network-cache", -1, "network cache in milliseconds, negative for the server default")
	rest, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	opt := openvidu.IPCamConnectionOption{
		RTSPURI:                 rest[1],
		Data:                    *data,
		AdaptativeBitrate:       adaptive,
		OnlyPlayWithSubscribers: onlyWithSubscribers,
	}
	if *networkCache >= 0 {
		opt.NetworkCache = networkCache
	}
	conn, err := s.CreateIPCamConnection(ctx, opt)
	if err != nil {
		return err
	}
	return a.print(newConnectionView(conn))
}

func runConnection(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("connection", flag.ContinueOnError), args, 2)
	if err != nil {
		return err
	}
	conn, err := a.connection(ctx, rest[0], rest[1])
	if err != nil {
		return err
	}
	if _, err := conn.Fetch(ctx); err != nil {
		return err
	}
	return a.print(newConnectionView(conn))
}

func runDisconnect(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("disconnect", flag.ContinueOnError), args, 2)
	if err != nil {
		return err
	}
	conn, err := a.connection(ctx, rest[0], rest[1])
	if err != nil {
		return err
	}
	return conn.ForceDisconnect(ctx)
}

func runUnpublish(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("unpublish", flag.ContinueOnError), args, 2)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	for _, conn := range s.Connections() {
		for _, p := range conn.Publishers() {
			if p.StreamID == rest[1] {
				return p.ForceUnpublish(ctx)
			}
		}
	}
	return openvidu.ErrStreamNotFound
}

func runUnpublishAll(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flag.NewFlagSet("unpublish-all", flag.ContinueOnError), args, 2)
	if err != nil {
		return err
	}
	conn, err := a.connection(ctx, rest[0], rest[1])
	if err != nil {
		return err
	}
	return conn.ForceUnpublishAllStreams(ctx)
}

func runSignal(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signal", flag.ContinueOnError)
	typ := fs.String("type", "", "signal type")
	data := fs.String("data", "", "signal payload")
	to := fs.String("to", "", "comma separated connection ids, empty to broadcast")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, err := a.session(ctx, rest[0])
	if err != nil {
		return err
	}
	opt := openvidu.SignalOption{Type: *typ, Data: *data}
	if *to != "" {
		for _, id := range strings.Split(*to, ",") {
			conn, err := s.GetConnection(strings.TrimSpace(id))
			if err != nil {
				return fmt.Errorf("connection %q: %w", id, err)
			}
			opt.To = append(opt.To, conn)
		}
	}
	return s.Signal(ctx, opt)
}

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	spec := fs.String("spec", a.cfg.OpenVidu.WatchSpec, "cron spec of the fetch schedule")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if err := bootstrap.PrintBannerFromFile(os.Stderr, "banner.txt", a.cfg.ServerName); err != nil {
		logger.Warn("banner unavailable", zap.Error(err))
	}

	w, err := openvidu.NewWatcher(a.client, openvidu.WatcherOption{
		Spec:    *spec,
		Timeout: a.cfg.OpenVidu.Timeout,
		OnChange: func(c *openvidu.Client) {
			views := make([]sessionView, 0)
			for _, s := range c.Sessions() {
				views = append(views, newSessionView(s))
			}
			if err := a.print(views); err != nil {
				logger.Warn("print sessions failed", zap.Error(err))
			}
		},
	})
	if err != nil {
		return err
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving metrics", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if _, err := w.RunOnce(ctx); err != nil {
		logger.Warn("initial fetch failed", zap.Error(err))
	}
	w.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.OpenVidu.Timeout)
	defer cancel()
	return w.Stop(stopCtx)
}
