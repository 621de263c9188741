package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/panelnode/cmd"
	"github.com/smazurov/panelnode/internal/api"
	"github.com/smazurov/panelnode/internal/config"
	"github.com/smazurov/panelnode/internal/display"
	"github.com/smazurov/panelnode/internal/events"
	"github.com/smazurov/panelnode/internal/kernel"
	"github.com/smazurov/panelnode/internal/logging"
	"github.com/smazurov/panelnode/internal/metrics/collectors"
	"github.com/smazurov/panelnode/internal/metrics/exporters"
	"github.com/smazurov/panelnode/internal/node"
	"github.com/smazurov/panelnode/internal/periph"
	"github.com/smazurov/panelnode/internal/systemd"
	"github.com/smazurov/panelnode/internal/tasks"
	"github.com/smazurov/panelnode/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Peripheral settings
	PeriphBackend     string `help:"Peripheral backend (auto, sysfs, sim, noop)" default:"auto" toml:"periph.backend" env:"PERIPH_BACKEND"`
	PeriphRoot        string `help:"Sysfs root" default:"/sys" toml:"periph.root" env:"PERIPH_ROOT"`
	PeriphOutputs     string `help:"Output channels as name=target,..." default:"red=13,green=11,blue=12" toml:"periph.outputs" env:"PERIPH_OUTPUTS"`
	PeriphPWM         string `help:"PWM channels as name=chip:channel,..." default:"buzzer=0:0" toml:"periph.pwm" env:"PERIPH_PWM"`
	PeriphInputs      string `help:"Input channels as name=gpio,..." default:"button_a=5,button_b=6" toml:"periph.inputs" env:"PERIPH_INPUTS"`
	PeriphPWMPeriodNs int    `help:"PWM period in nanoseconds" default:"125000" toml:"periph.pwm_period_ns" env:"PERIPH_PWM_PERIOD_NS"`
	PeriphActiveLow   bool   `help:"Buttons pull up and read low when pressed" default:"true" toml:"periph.active_low" env:"PERIPH_ACTIVE_LOW"`

	// Display settings
	DisplayKind string `help:"Status display (console, memory)" default:"console" toml:"display.kind" env:"DISPLAY_KIND"`

	// Task timing
	KernelTickMs      int `help:"Scheduler tick in milliseconds" default:"1" toml:"kernel.tick_ms" env:"KERNEL_TICK_MS"`
	IndicatorPeriodMs int `help:"Indicator color period in milliseconds" default:"500" toml:"tasks.indicator_period_ms" env:"TASKS_INDICATOR_PERIOD_MS"`
	PulseOnMs         int `help:"Buzzer on time in milliseconds" default:"100" toml:"tasks.pulse_on_ms" env:"TASKS_PULSE_ON_MS"`
	PulseOffMs        int `help:"Buzzer off time in milliseconds" default:"900" toml:"tasks.pulse_off_ms" env:"TASKS_PULSE_OFF_MS"`
	ButtonPollMs      int `help:"Button poll interval in milliseconds" default:"100" toml:"tasks.button_poll_ms" env:"TASKS_BUTTON_POLL_MS"`
	StatusPeriodMs    int `help:"Status display refresh in milliseconds" default:"250" toml:"tasks.status_period_ms" env:"TASKS_STATUS_PERIOD_MS"`

	// Systemd settings
	SystemdUnit string `help:"Unit name for the service status API" default:"panelnode.service" toml:"systemd.unit" env:"SYSTEMD_UNIT"`

	// Update settings
	UpdateEnabled    bool   `help:"Enable self-update from GitHub releases" default:"true" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository for releases" default:"smazurov/panelnode" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingModules    string `help:"Per-module levels as module=level,..." default:"" toml:"logging.module_levels" env:"LOGGING_MODULES"`
	LoggingBufferSize int    `help:"Log entries kept for the API" default:"1000" toml:"logging.buffer_size" env:"LOGGING_BUFFER_SIZE"`
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// fatal logs and exits. Only start-up failures the node cannot run without end here.
func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:      opts.LoggingLevel,
			Format:     opts.LoggingFormat,
			Modules:    logging.ParseModules(opts.LoggingModules),
			BufferSize: opts.LoggingBufferSize,
		})
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.NewLogEntryEvent(entry))
		})

		ctx, cancel := context.WithCancel(context.Background())
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		var (
			server       *api.Server
			watcher      *config.Watcher[logging.Config]
			manager      *systemd.Manager
			kernelMetric *collectors.KernelCollector
			eventMetric  *collectors.EventCollector
			sseExporter  *exporters.SSEExporter
		)

		hooks.OnStart(func() {
			logger.Info("Starting panelnode", "config", opts.Config)

			watcher = config.NewConfigWatcher(opts.Config, config.LoadLoggingConfig, logging.GetLogger("config"))
			watcher.OnReload(func(cfg logging.Config) {
				logging.SetLevels(cfg)
				logger.Info("Logging levels reloaded", "level", cfg.Level, "modules", cfg.Modules)
			})
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, reload on SIGHUP only", "error", startErr)
			}
			go reloadOnHangup(ctx, watcher)

			ctrl, err := periph.New(periph.Config{
				Backend:   opts.PeriphBackend,
				Root:      opts.PeriphRoot,
				Outputs:   opts.PeriphOutputs,
				PWM:       opts.PeriphPWM,
				Inputs:    opts.PeriphInputs,
				PeriodNs:  int64(opts.PeriphPWMPeriodNs),
				ActiveLow: opts.PeriphActiveLow,
				Logger:    logging.GetLogger("periph"),
			})
			if err != nil {
				fatal(logger, "Failed to initialize peripherals", err)
			}

			disp, err := display.New(opts.DisplayKind, display.Options{
				Writer: os.Stdout,
				Logger: logging.GetLogger("display"),
			})
			if err != nil {
				fatal(logger, "Failed to initialize display", err)
			}

			k := kernel.New(kernel.Options{
				TickPeriod: ms(opts.KernelTickMs),
				Logger:     logging.GetLogger("kernel"),
			})

			n, err := node.New(k, ctrl, disp, eventBus, node.Config{
				Indicator: tasks.IndicatorConfig{Period: ms(opts.IndicatorPeriodMs)},
				Pulse:     tasks.PulseConfig{On: ms(opts.PulseOnMs), Off: ms(opts.PulseOffMs)},
				Control:   tasks.ControlConfig{Poll: ms(opts.ButtonPollMs), ActiveLow: opts.PeriphActiveLow},
				Status:    tasks.StatusConfig{Period: ms(opts.StatusPeriodMs)},
			}, logging.GetLogger("tasks"))
			if err != nil {
				fatal(logger, "Failed to configure tasks", err)
			}
			if err := n.Start(); err != nil {
				fatal(logger, "Failed to start tasks", err)
			}

			eventMetric = collectors.NewEventCollector(eventBus)
			eventMetric.Start()
			kernelMetric = collectors.NewKernelCollector(n, n.Uptime)
			if startErr := kernelMetric.Start(ctx); startErr != nil {
				logger.Warn("Failed to start task metrics", "error", startErr)
			}
			sseExporter = exporters.NewSSEExporter(eventBus)
			sseExporter.Start(ctx)

			if m, dbusErr := systemd.NewManager(ctx, opts.SystemdUnit); dbusErr != nil {
				logger.Debug("D-Bus unavailable, systemd routes disabled", "error", dbusErr)
			} else {
				manager = m
			}

			var updates *updater.Service
			if opts.UpdateEnabled {
				updates = newUpdater(opts, manager, logger)
			}

			apiOpts := &api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Panel:             n,
				EventBus:          eventBus,
				PrometheusHandler: exporters.HTTPHandler(),
			}
			if manager != nil {
				apiOpts.SystemdManager = manager
			}
			if updates != nil {
				apiOpts.UpdateService = updates
			}
			server = api.NewServer(apiOpts)

			go func() {
				if runErr := n.Run(ctx); runErr != nil {
					logger.Error("Scheduler stopped", "error", runErr)
				}
			}()

			notifier.Ready()
			notifier.Status(fmt.Sprintf("%d tasks running on %s backend", len(n.Tasks()), ctrl.Backend()))
			go notifier.Watchdog(ctx, advancing(n.Uptime))

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				fatal(logger, "Failed to start HTTP server", startErr)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()

			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}

			cancel()

			if sseExporter != nil {
				sseExporter.Stop()
			}
			if kernelMetric != nil {
				_ = kernelMetric.Stop()
			}
			if eventMetric != nil {
				eventMetric.Stop()
			}
			if watcher != nil {
				_ = watcher.Stop()
			}
			if manager != nil {
				manager.Close()
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeCmd())

	// Run the CLI
	cli.Run()
}

// newUpdater restarts through systemd when the unit is reachable, otherwise
// by signalling itself. Nil when the release source cannot be created.
func newUpdater(opts *Options, manager *systemd.Manager, logger *slog.Logger) *updater.Service {
	src, err := updater.NewGitHubSource(opts.UpdateRepository, opts.UpdatePrerelease)
	if err != nil {
		logger.Warn("Self-update unavailable", "error", err)
		return nil
	}
	uopts := updater.Options{
		Source:       src,
		RestartDelay: 500 * time.Millisecond,
		Logger:       logging.GetLogger("updater"),
	}
	if manager != nil {
		uopts.Restart = func() error { return manager.Restart(context.Background()) }
	}
	svc, err := updater.New(uopts)
	if err != nil {
		logger.Warn("Self-update unavailable", "error", err)
		return nil
	}
	return svc
}

// advancing reports false when kernel time has not moved since the last call.
func advancing(now func() time.Duration) func() bool {
	var last atomic.Int64
	last.Store(-1)
	return func() bool {
		cur := int64(now())
		return last.Swap(cur) != cur
	}
}

// reloadOnHangup forces a config reload on each SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, watcher *config.Watcher[logging.Config]) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			watcher.Reload()
		}
	}
}
