package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/ai/metrics"
	"github.com/daybrief/daybrief/internal/profile"
	"github.com/daybrief/daybrief/internal/version"
	"github.com/daybrief/daybrief/server/service/scheduler"
	"github.com/daybrief/daybrief/store"
	"github.com/daybrief/daybrief/store/db"
	"github.com/daybrief/daybrief/synthesis"
	"github.com/daybrief/daybrief/synthesis/email"
)

var (
	rootCmd = &cobra.Command{
		Use:   "daybrief",
		Short: `A personal activity synthesis service. Turns your digital exhaust into one prioritized daily briefing.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Only load .env for direct binary execution (not when running as systemd service)
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Data:    viper.GetString("data"),
				Driver:  viper.GetString("driver"),
				DSN:     viper.GetString("dsn"),
				Users:   viper.GetString("users"),
				Version: version.GetCurrentVersion(viper.GetString("mode")),
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				panic(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				cancel()
				slog.Error("failed to create db driver", "error", err)
				return
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				cancel()
				slog.Error("failed to migrate", "error", err)
				return
			}

			gateway, err := llm.NewService(&llm.Config{
				Provider: instanceProfile.LLMProvider,
				Model:    instanceProfile.LLMModel,
				APIKey:   instanceProfile.LLMAPIKey,
				BaseURL:  instanceProfile.LLMBaseURL,
				Timeout:  instanceProfile.LLMTimeout,
				RateRPS:  instanceProfile.LLMRateRPS,
			})
			if err != nil {
				cancel()
				slog.Error("failed to create model gateway", "provider", instanceProfile.LLMProvider, "error", err)
				return
			}
			gateway.Warmup(ctx)

			exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

			registry := synthesis.NewRegistry()
			emailAgent := email.NewAgent(email.NewFileFeed(instanceProfile.MailDropPath), gateway)
			if err := registry.Register(emailAgent); err != nil {
				cancel()
				slog.Error("failed to register source agent", "error", err)
				return
			}

			assembler := synthesis.NewAssembler(registry,
				time.Duration(instanceProfile.SourceTimeoutSeconds)*time.Second, exporter)
			pipeline := synthesis.NewPipeline(synthesis.PipelineConfig{
				Gateway:          gateway,
				Store:            storeInstance,
				Exporter:         exporter,
				StaleContactDays: instanceProfile.StaleContactDays,
			})
			orchestrator := synthesis.NewOrchestrator(synthesis.OrchestratorConfig{
				Registry:  registry,
				Assembler: assembler,
				Pipeline:  pipeline,
				Store:     storeInstance,
				Exporter:  exporter,
			})

			userIDs := instanceProfile.UserIDs()
			if len(userIDs) == 0 {
				slog.Warn("no users configured, scheduler will idle", "hint", "set DAYBRIEF_USERS")
			}
			sched, err := scheduler.New(scheduler.Config{
				Orchestrator: orchestrator,
				Users: func(context.Context) ([]string, error) {
					return userIDs, nil
				},
				Interval:  time.Duration(instanceProfile.SynthesisIntervalMinutes) * time.Minute,
				DailyHour: instanceProfile.DailyBriefingHour,
			})
			if err != nil {
				cancel()
				slog.Error("failed to create scheduler", "error", err)
				return
			}
			if err := sched.Start(ctx); err != nil {
				cancel()
				slog.Error("failed to start scheduler", "error", err)
				return
			}

			httpSrv := newMetricsServer(instanceProfile, exporter)
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server failed", "error", err)
				}
			}()

			c := make(chan os.Signal, 1)
			// SIGTERM is the graceful shutdown signal used by systemd and
			// kubernetes; SIGINT covers Ctrl+C in a terminal.
			signal.Notify(c, terminationSignals...)

			printGreetings(instanceProfile)

			go func() {
				<-c
				shutdown(httpSrv, sched, orchestrator, storeInstance)
				cancel()
			}()

			<-ctx.Done()
		},
	}
)

// shutdown stops accepting new work, drains in-flight synthesis cycles, and
// closes the store. Bounded so a wedged cycle cannot hold the process hostage.
func shutdown(httpSrv *http.Server, sched *scheduler.Scheduler, orchestrator *synthesis.Orchestrator, storeInstance *store.Store) {
	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop()
	if err := orchestrator.Shutdown(ctx); err != nil {
		slog.Warn("cycle drain incomplete", "error", err)
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Warn("metrics server shutdown", "error", err)
	}
	if err := storeInstance.Close(); err != nil {
		slog.Warn("store close", "error", err)
	}
}

func newMetricsServer(p *profile.Profile, exporter *metrics.PrometheusExporter) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(p.MetricsPath, exporter.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", p.Addr, p.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28091)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28091, "port of the metrics/health endpoint")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("users", "", "comma-separated user ids to schedule cycles for")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "users"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("daybrief")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Daybrief %s started successfully!\n", p.Version)

	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Mail drop: %s\n", p.MailDropPath)
	fmt.Printf("Synthesis interval: %dm, daily briefing hour: %d\n",
		p.SynthesisIntervalMinutes, p.DailyBriefingHour)
	if len(p.Addr) == 0 {
		fmt.Printf("Metrics on http://localhost:%d%s\n", p.Port, p.MetricsPath)
	} else {
		fmt.Printf("Metrics on http://%s:%d%s\n", p.Addr, p.Port, p.MetricsPath)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
