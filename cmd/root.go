package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/meridiandb/partition-exchanger/cmd.Version=1.2.3"
	Version = "dev" // Default to "dev" if not set during build

	cfgFile          string
	debug            bool
	logFormat        string
	dbHost           string
	dbPort           int
	dbUser           string
	dbPassword       string
	dbService        string
	s3Endpoint       string
	s3Bucket         string
	s3AccessKey      string
	s3SecretKey      string
	s3Region         string
	sourceTable      string
	startDate        string
	endDate          string
	configTable      string
	logTable         string
	traceTable       string
	dryRun           bool
	pathTemplate     string
	exportFormat     string
	compression      string
	compressionLevel int

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D9FF"))

	logger *slog.Logger
)

// textOnlyHandler is a custom slog handler that outputs human-readable text
// without key=value pairs, suitable for interactive terminal usage
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &textOnlyHandler{
		opts:   *opts,
		writer: w,
	}
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	// Format: YYYY-MM-DD HH:MM:SS LEVEL message
	timestamp := r.Time.Format("2006-01-02 15:04:05")
	level := r.Level.String()

	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", timestamp, level, r.Message)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	// For simplicity, we ignore attributes in text-only mode
	return h
}

func (h *textOnlyHandler) WithGroup(_ string) slog.Handler {
	// For simplicity, we ignore groups in text-only mode
	return h
}

// initLogger initializes the slog logger based on debug flag and log format
func initLogger(isDebug bool, format string) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if isDebug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "logfmt":
		// logfmt uses slog.TextHandler which outputs key=value pairs
		handler = slog.NewTextHandler(os.Stdout, opts)
	default: // "text" or anything else
		handler = newTextOnlyHandler(os.Stdout, opts)
	}

	logger = slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "partition-exchanger",
	Version: Version,
	Short:   "📦 Archive Oracle table partitions via atomic partition exchange",
	Long: titleStyle.Render("Partition Exchanger") + `

A CLI tool to relocate whole time-bounded partitions from live Oracle tables
into their archive tables using a two-hop EXCHANGE PARTITION through a staging
table. Metadata-only: no row copying, no dump files. Every run is audited in
control tables and can export its execution log to S3.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// Show help when no subcommand is specified
		cmd.Help()
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive partitions for a date range",
	Long: `Archive partitions for a date range. For each date, locates the source
partition, exchanges it into staging, then into the archive partition
(materializing it first if needed), validates row conservation, records an
audit row, and drops the emptied source partition.`,
	Run: func(_ *cobra.Command, _ []string) {
		runArchive()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate archival preconditions without archiving",
	Long: `Validate archival preconditions without archiving: configuration row,
source partitioning, structural compatibility of source, archive and staging,
and index health. Intended for deployment checks.`,
	Run: func(_ *cobra.Command, _ []string) {
		runValidate()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the execution log to S3",
	Long: `Export the execution log table to S3 as JSONL or CSV, compressed with
zstd, lz4 or gzip. Skips the upload when an identical object already exists.`,
	Run: func(_ *cobra.Command, _ []string) {
		runExport()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.partition-exchanger.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would be archived without changing anything")

	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "localhost", "Oracle host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 1521, "Oracle listener port")
	rootCmd.PersistentFlags().StringVar(&dbUser, "db-user", "", "Oracle user")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "Oracle password")
	rootCmd.PersistentFlags().StringVar(&dbService, "db-service", "", "Oracle service name")

	rootCmd.PersistentFlags().StringVar(&configTable, "config-table", defaultConfigTable, "archival configuration table")
	rootCmd.PersistentFlags().StringVar(&logTable, "log-table", defaultLogTable, "execution log table")
	rootCmd.PersistentFlags().StringVar(&traceTable, "trace-table", defaultTraceTable, "trace event table")

	// Archive-specific flags
	archiveCmd.Flags().StringVar(&sourceTable, "table", "", "source table name (required)")
	archiveCmd.Flags().StringVar(&startDate, "start-date", "", "start date (YYYY-MM-DD)")
	archiveCmd.Flags().StringVar(&endDate, "end-date", "", "end date (YYYY-MM-DD, defaults to start date)")

	// Validate shares the table flag
	validateCmd.Flags().StringVar(&sourceTable, "table", "", "source table name (required)")

	// Export-specific flags
	exportCmd.Flags().StringVar(&sourceTable, "table", "", "source table to export log rows for (required)")
	exportCmd.Flags().StringVar(&startDate, "start-date", "", "start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&endDate, "end-date", "", "end date (YYYY-MM-DD, defaults to start date)")
	exportCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	exportCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket name")
	exportCmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	exportCmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
	exportCmd.Flags().StringVar(&s3Region, "s3-region", "auto", "S3 region")
	exportCmd.Flags().StringVar(&pathTemplate, "path-template", "", "S3 path template with placeholders: {table}, {YYYY}, {MM}, {DD} (required)")
	exportCmd.Flags().StringVar(&exportFormat, "export-format", "jsonl", "export format: jsonl, csv")
	exportCmd.Flags().StringVar(&compression, "compression", "zstd", "compression type: zstd, lz4, gzip, none")
	exportCmd.Flags().IntVar(&compressionLevel, "compression-level", 3, "compression level (zstd: 1-22, lz4/gzip: 1-9, none: 0)")

	// Note: We don't use MarkFlagRequired because it checks before viper loads the config file.
	// Instead, validation happens in config.Validate() which runs after all config sources are loaded.

	// Bind persistent flags
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("db.host", rootCmd.PersistentFlags().Lookup("db-host"))
	_ = viper.BindPFlag("db.port", rootCmd.PersistentFlags().Lookup("db-port"))
	_ = viper.BindPFlag("db.user", rootCmd.PersistentFlags().Lookup("db-user"))
	_ = viper.BindPFlag("db.password", rootCmd.PersistentFlags().Lookup("db-password"))
	_ = viper.BindPFlag("db.service", rootCmd.PersistentFlags().Lookup("db-service"))
	_ = viper.BindPFlag("config_table", rootCmd.PersistentFlags().Lookup("config-table"))
	_ = viper.BindPFlag("log_table", rootCmd.PersistentFlags().Lookup("log-table"))
	_ = viper.BindPFlag("trace_table", rootCmd.PersistentFlags().Lookup("trace-table"))

	// Bind archive flags
	_ = viper.BindPFlag("table", archiveCmd.Flags().Lookup("table"))
	_ = viper.BindPFlag("start_date", archiveCmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("end_date", archiveCmd.Flags().Lookup("end-date"))

	// Bind validate flags
	_ = viper.BindPFlag("table", validateCmd.Flags().Lookup("table"))

	// Bind export flags (last binding wins for shared variables)
	_ = viper.BindPFlag("table", exportCmd.Flags().Lookup("table"))
	_ = viper.BindPFlag("start_date", exportCmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("end_date", exportCmd.Flags().Lookup("end-date"))
	_ = viper.BindPFlag("s3.endpoint", exportCmd.Flags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag("s3.bucket", exportCmd.Flags().Lookup("s3-bucket"))
	_ = viper.BindPFlag("s3.access_key", exportCmd.Flags().Lookup("s3-access-key"))
	_ = viper.BindPFlag("s3.secret_key", exportCmd.Flags().Lookup("s3-secret-key"))
	_ = viper.BindPFlag("s3.region", exportCmd.Flags().Lookup("s3-region"))
	_ = viper.BindPFlag("s3.path_template", exportCmd.Flags().Lookup("path-template"))
	_ = viper.BindPFlag("export_format", exportCmd.Flags().Lookup("export-format"))
	_ = viper.BindPFlag("compression", exportCmd.Flags().Lookup("compression"))
	_ = viper.BindPFlag("compression_level", exportCmd.Flags().Lookup("compression-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".partition-exchanger")
	}

	viper.SetEnvPrefix("PEX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && debug {
		// Initialize logger early if reading config in debug mode
		if logger == nil {
			initLogger(debug, logFormat)
		}
		logger.Debug(fmt.Sprintf("📄 Using config file: %s", viper.ConfigFileUsed()))
	}
}

func buildConfig() *Config {
	return &Config{
		Debug:     viper.GetBool("debug"),
		LogFormat: viper.GetString("log_format"),
		DryRun:    viper.GetBool("dry_run"),
		Database: DatabaseConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			Service:  viper.GetString("db.service"),
		},
		S3: S3Config{
			Endpoint:     viper.GetString("s3.endpoint"),
			Bucket:       viper.GetString("s3.bucket"),
			AccessKey:    viper.GetString("s3.access_key"),
			SecretKey:    viper.GetString("s3.secret_key"),
			Region:       viper.GetString("s3.region"),
			PathTemplate: viper.GetString("s3.path_template"),
		},
		Table:            viper.GetString("table"),
		StartDate:        viper.GetString("start_date"),
		EndDate:          viper.GetString("end_date"),
		ConfigTable:      viper.GetString("config_table"),
		LogTable:         viper.GetString("log_table"),
		TraceTable:       viper.GetString("trace_table"),
		ExportFormat:     viper.GetString("export_format"),
		Compression:      viper.GetString("compression"),
		CompressionLevel: viper.GetInt("compression_level"),
	}
}

// signalContext builds a context cancelled on SIGINT/SIGTERM, with a watchdog
// goroutine that forces exit if graceful shutdown stalls.
func signalContext(exited <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		select {
		case <-exited:
			return
		default:
		}
		logger.Info("")
		logger.Info("⚠️  Interrupt signal received, shutting down...")

		select {
		case <-exited:
		case <-time.After(2 * time.Second):
			logger.Error("⚠️  Graceful shutdown timed out, forcing exit...")
			os.Exit(130)
		}
	}()

	return ctx, stop
}

func runArchive() {
	// Add panic recovery to catch any unexpected crashes
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()
	initLogger(config.Debug, config.LogFormat)

	logger.Info("")
	logger.Info(fmt.Sprintf("🚀 Partition Exchanger v%s", Version))
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	logger.Debug("Validating configuration...")
	if err := config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		os.Exit(1)
	}
	logger.Debug("Configuration validated successfully")

	if config.DryRun {
		logger.Info(infoStyle.Render("💧 Dry run: no partitions will be exchanged or dropped"))
	}

	exited := make(chan struct{})
	ctx, stop := signalContext(exited)
	defer stop()

	logger.Debug("Creating exchanger...")
	exchanger := NewExchanger(config, logger)
	logger.Debug("Starting archival run...")

	err := exchanger.Run(ctx)
	close(exited) // Signal that the run has exited

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("")
			logger.Info("⚠️  Archival cancelled by user")
			os.Exit(130)
		}
		if errors.Is(err, ErrRunInProgress) {
			logger.Error(fmt.Sprintf("❌ %s: another run holds the configuration lock", config.Table))
			os.Exit(1)
		}
		logger.Error(fmt.Sprintf("❌ Archival failed: %s", err.Error()))
		os.Exit(1)
	}

	logger.Info("")
	logger.Info("✅ Archival run completed!")
}

func runValidate() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()
	// Validate runs against today only; the date flags are not part of it.
	if config.StartDate == "" {
		config.StartDate = time.Now().Format("2006-01-02")
	}
	initLogger(config.Debug, config.LogFormat)

	logger.Info("")
	logger.Info(fmt.Sprintf("🔍 Partition Exchanger v%s - Precondition Check", Version))
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		os.Exit(1)
	}

	exited := make(chan struct{})
	ctx, stop := signalContext(exited)
	defer stop()

	exchanger := NewExchanger(config, logger)
	err := exchanger.ValidatePreconditions(ctx)
	close(exited)

	if err != nil {
		logger.Error(fmt.Sprintf("❌ Precondition check failed: %s", err.Error()))
		os.Exit(1)
	}

	logger.Info("")
	logger.Info("✅ All preconditions passed!")
}

func runExport() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()
	initLogger(config.Debug, config.LogFormat)

	logger.Info("")
	logger.Info(fmt.Sprintf("🚀 Partition Exchanger v%s - Log Export", Version))
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	logger.Debug("Validating configuration...")
	if err := config.ValidateExport(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		os.Exit(1)
	}
	logger.Debug("Configuration validated successfully")

	if config.DryRun {
		logger.Info(infoStyle.Render("💧 Dry run: nothing will be uploaded"))
	}

	exited := make(chan struct{})
	ctx, stop := signalContext(exited)
	defer stop()

	logger.Debug("Creating exporter...")
	exporter := NewExporter(config, logger)
	logger.Debug("Starting export...")

	err := exporter.Run(ctx)
	close(exited)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("")
			logger.Info("⚠️  Export cancelled by user")
			os.Exit(130)
		}
		logger.Error(fmt.Sprintf("❌ Export failed: %s", err.Error()))
		os.Exit(1)
	}

	logger.Info("")
	logger.Info("✅ Export completed successfully!")
}
