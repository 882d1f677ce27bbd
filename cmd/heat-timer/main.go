// Command heat-timer drives a heating element through timed heat/cool duty
// cycles selected from an analog keypad, and reports state over MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/clock"
	"github.com/sweeney/heat-timer/internal/config"
	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/indicator"
	"github.com/sweeney/heat-timer/internal/mqtt"
	"github.com/sweeney/heat-timer/internal/relay"
	"github.com/sweeney/heat-timer/internal/status"
	"github.com/sweeney/heat-timer/internal/web"
)

type options struct {
	Config      string         `short:"c" long:"config" default:"/etc/heat-timer.yaml" description:"YAML configuration file (defaults apply if missing)"`
	Mode        string         `short:"m" long:"mode" choice:"develop" choice:"production" description:"Timing preset, overrides the config file"`
	Broker      *string        `long:"broker" description:"MQTT broker address (empty disables MQTT)"`
	HTTP        *string        `long:"http" description:"HTTP status address (empty disables)"`
	Heartbeat   *time.Duration `long:"heartbeat" description:"Heartbeat interval (0 to disable)"`
	Debug       bool           `short:"d" long:"debug" description:"Enable debug logging"`
	PrintConfig bool           `long:"print-config" description:"Print the effective configuration and exit"`
	PrintState  bool           `long:"print-state" description:"Read the keypad once, print the samples and exit"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger, err := newLogger(opts.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Fatalf("fatal: %v", err)
	}

	if opts.PrintConfig {
		data, err := cfg.Marshal()
		if err != nil {
			logger.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	if err := run(cfg, opts.PrintState, logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		mode, err := config.ParseMode(opts.Mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	if opts.Broker != nil {
		cfg.MQTT.Broker = *opts.Broker
	}
	if opts.HTTP != nil {
		cfg.HTTP.Addr = *opts.HTTP
	}
	if opts.Heartbeat != nil {
		cfg.MQTT.Heartbeat = *opts.Heartbeat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config, printState bool, logger *zap.SugaredLogger) error {
	timing, err := cfg.Timing()
	if err != nil {
		return err
	}
	groups, err := cfg.Groups()
	if err != nil {
		return err
	}
	classifier, err := button.NewClassifier(groups)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}

	// Initialize ADC
	reader, err := openReader(cfg.ADC, logger.Named("adc"))
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		return printSamples(os.Stdout, classifier, reader)
	}

	// Initialize GPIO outputs, all off
	outs, err := openOutputs(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outs.Close()

	clk := clock.Real{}
	controller, err := duty.New(duty.Config{Heat: timing.Heat, Cool: timing.Cool}, clk, logger.Named("duty"))
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	heater := relay.New(outs.relay, logger.Named("relay"))
	panel := indicator.NewPanel(
		indicator.New("job", outs.jobLED, clk, logger.Named("led")),
		indicator.New("heat", outs.heatLED, clk, logger.Named("led")),
		indicator.Pulse(cfg.Indicator.PulsePeriod, cfg.Indicator.PulseWidth),
	)
	defer panel.Job.SetMode(indicator.Off)
	defer panel.Heat.SetMode(indicator.Off)

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		rp := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger.Named("mqtt"))
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(clk.Now(), status.Config{
		Mode:        string(cfg.Mode),
		ScanMs:      cfg.Scan.Period.Milliseconds(),
		HeatMs:      timing.Heat.Milliseconds(),
		CoolMs:      timing.Cool.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	events := make(chan duty.Event, eventBuffer)
	wire(controller, heater, panel, tracker, events, logger)

	// The outputs start in the Idle arrangement before any press is read.
	panel.OnPhase(duty.Event{Phase: duty.Idle, Time: clk.Now()})

	d := &daemon{
		controller: controller,
		timing:     timing,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		out:        newOutbox(publisher, events, logger.Named("outbox")),
		logger:     logger,
		now:        clk.Now,
	}
	d.publishStatus(mqtt.EventStartup, "", true)

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	logger.Infof("started: mode=%s heat=%v cool=%v scan=%v broker=%q heartbeat=%v",
		cfg.Mode, timing.Heat, timing.Cool, cfg.Scan.Period, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	scanner := button.NewScanner(classifier, reader, button.DefaultBuffer, logger.Named("keypad"))
	scanTicker := time.NewTicker(cfg.Scan.Period)
	defer scanTicker.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner.Run(ctx, scanTicker.C)
	}()
	defer func() {
		cancel()
		<-scanDone
	}()

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		hb := time.NewTicker(cfg.MQTT.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(scanner.Presses(), heartbeat, sigCh)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
