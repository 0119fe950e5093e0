package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sourceplane/jobwrecker/internal/convert"
	"github.com/sourceplane/jobwrecker/internal/extension"
	"github.com/sourceplane/jobwrecker/internal/loader"
	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/modules"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/schema"
	"github.com/sourceplane/jobwrecker/internal/translate"
)

var (
	configFile     string
	envFile        string
	outputDir      string
	viewsDir       string
	logFormat      string
	verbose        bool
	workers        int
	extensionPaths []string
	skipTags       []string
	ignoreNames    []string
	ignoreActions  bool
	validateOutput bool
	reportView     string
)

// Set up by PersistentPreRunE for every command
var (
	cfg    *model.Config
	logger ectologger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "jobwrecker",
	Short:         "Jenkins job XML → Jenkins Job Builder YAML",
	Long:          "jobwrecker converts Jenkins job and view configurations into Jenkins Job Builder YAML, keeping anything it cannot convert as raw XML",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		loaded, err := loader.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		applyFlags(cmd, loaded)
		if err := loader.ValidateConfig(loaded); err != nil {
			return err
		}
		cfg = loaded

		logger, err = newLogger(cfg.LogFormat, cfg.Verbose)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default "+loader.DefaultConfigFile+" when present)")
	flags.StringVar(&envFile, "env-file", ".env", "File with JJW_USERNAME / JJW_PASSWORD")
	flags.StringVarP(&outputDir, "output-dir", "o", "output", "Folder to store generated job definitions")
	flags.StringVar(&viewsDir, "views-dir", "", "Folder to store generated view definitions (default <output-dir>/views)")
	flags.StringVar(&logFormat, "log-format", "console", "Log format (console/json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.IntVar(&workers, "workers", 4, "Configurations converted in parallel")
	flags.StringSliceVar(&extensionPaths, "extensions", nil, "Handler extension files or directories (use * for recursive scanning)")
	flags.StringSliceVar(&skipTags, "skip-tag", nil, "Top-level tags to drop with a warning instead of failing the job")
	flags.StringSliceVarP(&ignoreNames, "ignore", "i", nil, "Job or view names to ignore")
	flags.BoolVarP(&ignoreActions, "ignore-actions-tag", "a", false, "Skip a non-empty <actions> element instead of failing the job")
	flags.BoolVar(&validateOutput, "validate", false, "Validate generated YAML against the document schema")
	flags.StringVar(&reportView, "report", "tree", "Report after converting (tree/components/none)")

	registerConvertCommand(rootCmd)
	registerBatchCommand(rootCmd)
	registerWatchCommand(rootCmd)
	registerHandlersCommand(rootCmd)
	registerValidateCommand(rootCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command, c *model.Config) {
	changed := cmd.Flags().Changed
	if changed("output-dir") {
		c.OutputDir = outputDir
	}
	if changed("views-dir") {
		c.ViewsDir = viewsDir
	}
	if changed("log-format") {
		c.LogFormat = logFormat
	}
	if changed("verbose") {
		c.Verbose = verbose
	}
	if changed("workers") {
		c.Workers = workers
	}
	if changed("extensions") {
		c.Extensions = extensionPaths
	}
	if changed("skip-tag") {
		c.SkipTags = skipTags
	}
	if changed("ignore") {
		c.Ignore = ignoreNames
	}
	if changed("ignore-actions-tag") {
		c.IgnoreActionsTag = ignoreActions
	}
	if changed("validate") {
		c.Validate = validateOutput
	}
}

func newLogger(format string, debug bool) (ectologger.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}

	zapLogger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// buildRegistry loads the extensions found at paths and builds the registry
func buildRegistry(v *schema.Validator, paths []string) (*registry.Registry, error) {
	var plugins []registry.Plugin
	if len(paths) > 0 {
		fmt.Println("□ Loading extensions...")
		exts, err := loader.LoadExtensions(paths, v)
		if err != nil {
			return nil, fmt.Errorf("failed to load extensions: %w", err)
		}
		plugins = extension.Plugins(exts)
		fmt.Printf("✓ Loaded %d extensions\n", len(exts))
	}

	reg, err := modules.NewRegistry(plugins...)
	if err != nil {
		return nil, fmt.Errorf("failed to build handler registry: %w", err)
	}
	return reg, nil
}

// newConverter wires registry, translator and validator for a conversion run
func newConverter() (*convert.Converter, error) {
	v, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	reg, err := buildRegistry(v, cfg.Extensions)
	if err != nil {
		return nil, err
	}

	tr := translate.NewTranslator(reg, logger, translate.Options{
		SkipTags:      cfg.SkipTags,
		IgnoreActions: cfg.IgnoreActionsTag,
	})
	return convert.NewConverter(tr, v, logger, cfg), nil
}
