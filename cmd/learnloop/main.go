package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/learnloop/internal/config"
	"github.com/TobiSchelling/learnloop/internal/database"
	"github.com/TobiSchelling/learnloop/internal/learnings"
	"github.com/TobiSchelling/learnloop/internal/metrics"
	"github.com/TobiSchelling/learnloop/internal/pipeline"
	"github.com/TobiSchelling/learnloop/internal/schedule"
	"github.com/TobiSchelling/learnloop/internal/server"
	"github.com/TobiSchelling/learnloop/internal/tabular"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "learnloop",
	Short:   "Learn which outreach hooks work for which audience",
	Long:    "learnloop scores hook and audience combinations from the outreach activity log and keeps a learning store up to date.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogging("", verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		configureLogging(cfg.Logging.Level, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(recalcCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func configureLogging(level string, verbose bool) {
	log.SetOutput(os.Stderr)
	switch {
	case verbose || strings.EqualFold(level, "DEBUG"):
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	case strings.EqualFold(level, "ERROR"):
		log.SetOutput(io.Discard)
	default:
		log.SetFlags(log.LstdFlags)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("learnloop", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/learnloop/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your activity log and learning store.")
		return nil
	},
}

// --- recalc command ---

var todayFlag string

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate salience and update the learning store",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := parseToday(todayFlag)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		pipe := pipeline.New(pipeline.Options{
			ActivitiesPath:  cfg.Paths.Activities,
			Store:           store,
			Metrics:         metrics.NewManager(),
			MetricsTextfile: cfg.Metrics.Textfile,
			Today:           today,
		})

		result, err := pipe.Recalc(context.Background())
		if err != nil {
			return err
		}
		if result.Empty {
			fmt.Println(result.Message)
			return nil
		}

		fmt.Print(result.Report.Text())
		sum := result.Summary
		fmt.Printf("\nLearnings updated: %d inserted, %d updated, %d untouched (%d total)\n",
			sum.Inserted, sum.Updated, sum.Untouched, sum.Total)
		fmt.Printf("Saved to: %s\n", storeLocation())
		return nil
	},
}

func init() {
	recalcCmd.Flags().StringVar(&todayFlag, "today", "", "Override the run date (YYYY-MM-DD)")
}

func parseToday(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// --- report command ---

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the salience report without updating the learning store",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch reportFormat {
		case "text", "markdown", "html":
		default:
			return fmt.Errorf("unknown format %q (want text, markdown or html)", reportFormat)
		}

		today, err := parseToday(todayFlag)
		if err != nil {
			return err
		}
		pipe := pipeline.New(pipeline.Options{
			ActivitiesPath: cfg.Paths.Activities,
			Today:          today,
		})

		result, err := pipe.Report(context.Background())
		if err != nil {
			return err
		}
		if result.Empty {
			fmt.Println(result.Message)
			return nil
		}

		switch reportFormat {
		case "markdown":
			fmt.Print(result.Report.Markdown())
		case "html":
			html, err := result.Report.HTML()
			if err != nil {
				return err
			}
			fmt.Print(html)
		default:
			fmt.Print(result.Report.Text())
			fmt.Println("\n[report-only] Learning store not modified.")
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Output format: text, markdown or html")
	reportCmd.Flags().StringVar(&todayFlag, "today", "", "Override the report date (YYYY-MM-DD)")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show learning store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Activity log: %s", cfg.Paths.Activities)
		if _, err := os.Stat(cfg.Paths.Activities); err != nil {
			fmt.Print(" (not found)")
		}
		fmt.Println()
		fmt.Printf("Store backend: %s\n", cfg.Store.Backend)
		fmt.Printf("Learning store: %s\n", storeLocation())

		if cfg.Store.Backend == config.BackendSQLite {
			db, err := database.Open(cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			fmt.Println("\nLearnings:")
			fmt.Printf("  Total: %d\n", stats.Total)
			fmt.Printf("  Hooks: %d\n", stats.Hooks)
			for _, a := range stats.Audiences {
				fmt.Printf("  %s: %d\n", a.Audience, a.Count)
			}
			return nil
		}

		if _, err := os.Stat(cfg.Paths.Learnings); os.IsNotExist(err) {
			fmt.Println("\nLearnings: none yet (run 'learnloop recalc')")
			return nil
		}
		records, err := tabular.NewCSVStore(cfg.Paths.Learnings).Load()
		if err != nil {
			return err
		}
		printCounts(records)
		return nil
	},
}

func printCounts(records []learnings.Record) {
	hooks := make(map[string]bool)
	var order []string
	audiences := make(map[string]int)
	for _, r := range records {
		if r.Type == learnings.KindHook {
			hooks[r.Insight] = true
		}
		if _, ok := audiences[r.AudienceSegment]; !ok {
			order = append(order, r.AudienceSegment)
		}
		audiences[r.AudienceSegment]++
	}

	fmt.Println("\nLearnings:")
	fmt.Printf("  Total: %d\n", len(records))
	fmt.Printf("  Hooks: %d\n", len(hooks))
	for _, a := range order {
		fmt.Printf("  %s: %d\n", a, audiences[a])
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		m := metrics.NewManager()
		pipe := pipeline.New(pipeline.Options{
			ActivitiesPath: cfg.Paths.Activities,
			Metrics:        m,
		})

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(pipe, m.Registry(), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- schedule command ---

var cronExpr string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run recalc on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := cfg.Schedule.Cron
		if cmd.Flags().Changed("cron") {
			expr = cronExpr
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		pipe := pipeline.New(pipeline.Options{
			ActivitiesPath:  cfg.Paths.Activities,
			Store:           store,
			Metrics:         metrics.NewManager(),
			MetricsTextfile: cfg.Metrics.Textfile,
		})

		sched, err := schedule.New(expr, func(ctx context.Context) error {
			result, err := pipe.Recalc(ctx)
			if err != nil {
				return err
			}
			if result.Empty {
				log.Print(result.Message)
				return nil
			}
			log.Printf("Recalc done: %d inserted, %d updated (%d total)",
				result.Summary.Inserted, result.Summary.Updated, result.Summary.Total)
			return nil
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Scheduling recalc with %q, next run %s\n", expr, sched.Next(time.Now()).Format(time.RFC1123))
		fmt.Println("Press Ctrl+C to stop")
		return sched.Run(ctx)
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (default from config)")
}

// openStore opens the configured learning store and returns its closer.
func openStore() (learnings.Store, func(), error) {
	if cfg.Store.Backend == config.BackendSQLite {
		db, err := database.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}
	return tabular.NewCSVStore(cfg.Paths.Learnings), func() {}, nil
}

func storeLocation() string {
	if cfg.Store.Backend == config.BackendSQLite {
		return cfg.Store.SQLitePath
	}
	return cfg.Paths.Learnings
}
