package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/moyoez/sharesession/analytics"
	"github.com/moyoez/sharesession/api"
	"github.com/moyoez/sharesession/api/notifyhub"
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/notify"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flags := tool.SetFlags()
	tool.InitLogger()

	cfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 1
	}
	tool.ApplyFlagOverrides(&cfg, flags)
	tool.SetLogMode(cfg.LogLevel)

	recorder, closeAnalytics := newRecorder(cfg)
	defer closeAnalytics()

	var hub *notifyhub.Hub
	notifiers := notify.Fanout{notify.NewSocketNotifier(cfg.NotifySocket)}
	if cfg.NotifyWS && !flags.SkipAPI {
		hub = notifyhub.New()
		notifiers = append(notifiers, hub)
	}
	registry := share.NewRegistry(share.DefaultTTL, notifiers)
	service := share.NewService(share.OptionsFromConfig(&cfg), registry, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.SendTo != "" {
		return send(ctx, service, flags)
	}
	return serve(ctx, cfg, flags, service, registry, hub)
}

func newRecorder(cfg types.AppConfig) (*analytics.Recorder, func()) {
	analytics.RegisterMetrics()
	loggers := analytics.Fanout{analytics.DebugLogger{}}
	closer := func() {}
	if cfg.AnalyticsLogPath != "" {
		jsonLogger, err := analytics.OpenJSONLogger(cfg.AnalyticsLogPath)
		if err != nil {
			tool.DefaultLogger.Warnf("[Analytics] %v, events go to the debug log only", err)
		} else {
			loggers = append(loggers, jsonLogger)
			closer = func() {
				if err := jsonLogger.Close(); err != nil {
					tool.DefaultLogger.Errorf("[Analytics] Failed to close event log: %v", err)
				}
			}
		}
	}
	return analytics.NewRecorder(loggers, nil), closer
}

func send(ctx context.Context, service *share.Service, flags types.Config) int {
	b := &attachment.Builder{}
	b.AddText(flags.SendText, flags.SendTextTitle)
	for _, f := range flags.SendFiles {
		b.AddFile(f)
	}
	b.AddWifi(flags.SendWifiSSID, flags.SendWifiPass, flags.SendWifiHidden)

	m, err := service.Send(ctx, flags.SendTo, b.Build(), flags.SelfShare)
	switch {
	case errors.Is(err, share.ErrNothingToSend):
		tool.DefaultLogger.Errorf("Nothing to send, use -text, -file or -wifiSSID")
		return 2
	case err != nil:
		tool.DefaultLogger.Errorf("Share to %s failed: %v", flags.SendTo, err)
		return 1
	case m.Status != transfer.StatusComplete:
		tool.DefaultLogger.Warnf("Share to %s ended: %s", flags.SendTo, m.Status)
		return 1
	}
	tool.DefaultLogger.Infof("Share to %s complete (%d bytes)", flags.SendTo, m.TransferredBytes)
	return 0
}

func serve(ctx context.Context, cfg types.AppConfig, flags types.Config, service *share.Service, registry *share.Registry, hub *notifyhub.Hub) int {
	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to listen on %s: %v", cfg.ListenAddress, err)
		return 1
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if flags.ShowQRCode {
		printShareAddresses(port)
	}

	var apiServer *api.Server
	apiErr := make(chan error, 1)
	if !flags.SkipAPI {
		apiServer = api.NewServer(api.Options{
			Address:   cfg.APIAddress,
			Alias:     cfg.Alias,
			SharePort: port,
			Registry:  registry,
			Sender:    service,
			Hub:       hub,
		})
		go func() { apiErr <- apiServer.Start() }()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- service.Serve(ctx, ln) }()

	code := 0
	select {
	case err := <-served:
		if err != nil {
			tool.DefaultLogger.Errorf("Share listener stopped: %v", err)
			code = 1
		}
		served = nil
	case err := <-apiErr:
		if err != nil {
			tool.DefaultLogger.Errorf("API server startup failed: %v", err)
			code = 1
		}
	case <-ctx.Done():
		tool.DefaultLogger.Infof("Shutting down")
	}
	cancel()

	if apiServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			tool.DefaultLogger.Warnf("API server shutdown: %v", err)
		}
	}
	if served != nil {
		// Serve returns once the sessions it started have wound down.
		select {
		case <-served:
		case <-time.After(2 * shutdownTimeout):
			tool.DefaultLogger.Warnf("Sessions still running after %v, exiting anyway", 2*shutdownTimeout)
		}
	}
	return code
}

// printShareAddresses prints every address peers can send to, each with a
// terminal QR code.
func printShareAddresses(port int) {
	infos := share.GetNetworkInfos(port)
	if len(infos) == 0 {
		tool.DefaultLogger.Warnf("No usable network interface to print")
		return
	}
	for _, info := range infos {
		q, err := qrcode.New(info.ShareAddress, qrcode.Medium)
		if err != nil {
			tool.DefaultLogger.Warnf("Failed to encode %s: %v", info.ShareAddress, err)
			continue
		}
		fmt.Printf("%s %s (%s)\n%s\n", info.Number, info.ShareAddress, info.InterfaceName, q.ToSmallString(false))
	}
}
