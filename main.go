package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/ai"
	"github.com/example/korbot/internal/bot"
	"github.com/example/korbot/internal/config"
	"github.com/example/korbot/internal/database"
	"github.com/example/korbot/internal/excel"
	"github.com/example/korbot/internal/metrics"
	"github.com/example/korbot/internal/practice"
	"github.com/example/korbot/internal/scheduler"
	"github.com/example/korbot/pkg/logger"
	"github.com/example/korbot/pkg/models"
)

// app holds the dependencies shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *database.Store
	metrics *metrics.Manager
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "korbot",
		Short:         "Korean speaking practice bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(envFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "optional dotenv file")

	root.AddCommand(newServeCommand(a), newImportCommand(a), newLevelCommand(a))
	return root
}

func (a *app) init(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}

	dbCfg := database.Config{Driver: database.DriverSQLite, DSN: cfg.DatabasePath}
	if cfg.DBType == "postgres" {
		dbCfg = database.Config{Driver: database.DriverPostgres, DSN: cfg.DatabaseURL}
	}
	a.store, err = database.Open(dbCfg)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	a.metrics = metrics.NewManager()
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) service(corrector practice.Corrector) (*practice.Service, error) {
	mode, err := practice.ParseHistoryMode(a.cfg.LevelHistoryMode)
	if err != nil {
		return nil, err
	}
	return practice.NewService(a.store, corrector, practice.ServiceConfig{
		ItemsPerSession:    a.cfg.ItemsPerSession,
		NewItemsPerSession: a.cfg.NewItemsPerSession,
		HistoryMode:        mode,
	}, practice.WithLogger(a.logger), practice.WithMetrics(a.metrics)), nil
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var (
		corrector practice.Corrector
		examples  bot.ExampleGenerator
	)
	if a.cfg.OpenAIKey != "" {
		gpt, err := ai.New(ai.Config{
			APIKey:  a.cfg.OpenAIKey,
			BaseURL: a.cfg.OpenAIBaseURL,
			Model:   a.cfg.OpenAIModel,
		})
		if err != nil {
			return err
		}
		corrector, examples = gpt, gpt
	} else {
		a.logger.Warn("OPENAI_API_KEY is not set, answers will not be graded")
	}

	service, err := a.service(corrector)
	if err != nil {
		return err
	}

	b := bot.New(bot.Config{Token: a.cfg.TelegramToken, Admins: a.cfg.AdminChatIDs},
		a.store, service, corrector, examples, a.logger.Named("bot"), a.metrics)

	sched := scheduler.New(a.store, b, scheduler.Config{
		StartHour: a.cfg.NotificationStartHour,
		EndHour:   a.cfg.NotificationEndHour,
	}, a.logger.Named("scheduler"), a.metrics)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if a.cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("serving metrics", zap.String("addr", a.cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("bot started, press Ctrl+C to stop")
	return b.Start(ctx)
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newImportCommand(a *app) *cobra.Command {
	importCfg := excel.DefaultImportConfig()
	var source string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import items from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importCfg.Source = models.Source(source)
			im := excel.NewImporter(a.store, importCfg, a.logger, a.metrics)
			result, err := im.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed %d, created %d, skipped %d\n",
				result.TotalProcessed, result.Created, result.Skipped)
			for _, msg := range result.Errors {
				fmt.Fprintln(out, msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&importCfg.SheetName, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().IntVar(&importCfg.StartRow, "start-row", importCfg.StartRow, "first data row")
	cmd.Flags().StringVar(&source, "source", string(models.SourceSeed), "provenance tag for created items")
	return cmd
}

func newLevelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "level <student-id>",
		Short: "Re-estimate a student's TOPIK level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid student id %q", args[0])
			}
			service, err := a.service(nil)
			if err != nil {
				return err
			}
			level, err := service.Levels().EstimateLevel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "student %d: level %.1f\n", id, level)
			return nil
		},
	}
}
