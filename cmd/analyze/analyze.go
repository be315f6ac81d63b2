package analyze

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eoinhurrell/cfpaths/internal/analysis"
	"github.com/eoinhurrell/cfpaths/internal/author"
	"github.com/eoinhurrell/cfpaths/internal/brokenpaths"
	"github.com/eoinhurrell/cfpaths/internal/cache"
	"github.com/eoinhurrell/cfpaths/internal/errors"
	"github.com/eoinhurrell/cfpaths/internal/index"
	"github.com/eoinhurrell/cfpaths/internal/inventory"
	"github.com/eoinhurrell/cfpaths/internal/logging"
	"github.com/eoinhurrell/cfpaths/internal/report"
	"github.com/eoinhurrell/cfpaths/internal/rules"
	"github.com/eoinhurrell/cfpaths/pkg/config"
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [broken-paths-file]",
		Short: "Suggest fixes for broken content fragment paths",
		Long: `Run one audit: load the content inventory, read the list of broken
/content/dam/ paths and print one suggestion per path.

Each path is tried against the rules in order:
  PUBLISH    the content exists on author but is not published
  LOCALE     the same content exists under a fallback locale
  SIMILAR    a sibling with a nearly identical name exists
  NOT_FOUND  nothing matched

The broken path file holds one path per line ('#' comments allowed) or a
YAML/JSON list. The inventory is a YAML/JSON document or a SQLite database.`,
		Example: `  # Analyze with an inventory export
  cfpaths analyze broken.txt --inventory inventory.yaml

  # Check the author environment live and write JSON
  CFPATHS_AUTHOR_TOKEN=... cfpaths analyze broken.txt \
    --inventory content.db --author-url https://author.example.com -f json -o report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd, args)
			if err != nil {
				return err
			}

			logger, err := NewLogger(cmd, cfg)
			if err != nil {
				return errors.NewConfigError(cfg.File, err.Error())
			}
			defer func() { _ = logger.Sync() }()

			return NewRunner(cfg, logger, cmd.OutOrStdout()).Run(cmd.Context())
		},
	}

	AddFlags(cmd)
	return cmd
}

// AddFlags registers the flags shared by analyze and watch
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("inventory", "i", "", "Content inventory (YAML/JSON file or SQLite database)")
	cmd.Flags().StringP("broken-paths", "b", "", "File listing broken paths (alternative to the argument)")
	cmd.Flags().StringP("format", "f", "", "Output format (text, json, yaml)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String("author-url", "", "Author environment base URL; enables live lookups")
	cmd.Flags().Int("concurrency", 0, "Paths analyzed in parallel")
	cmd.Flags().Int("max-distance", -1, "Largest name edit distance accepted for SIMILAR suggestions")
	cmd.Flags().StringSlice("locale-fallback", nil, "Locales tried for LOCALE suggestions, in order")
}

// LoadConfig reads the configuration and applies command-line overrides
func LoadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	loader := config.NewLoader()

	configPath, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = loader.LoadFile(configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, errors.NewConfigError(configPath, err.Error())
	}

	flags := cmd.Flags()
	if flags.Changed("inventory") {
		cfg.Inventory, _ = flags.GetString("inventory")
	}
	if flags.Changed("broken-paths") {
		cfg.BrokenPaths, _ = flags.GetString("broken-paths")
	}
	if len(args) > 0 {
		cfg.BrokenPaths = args[0]
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		cfg.Output.File, _ = flags.GetString("output")
	}
	if flags.Changed("author-url") {
		cfg.Author.URL, _ = flags.GetString("author-url")
	}
	if flags.Changed("concurrency") {
		cfg.Analysis.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("max-distance") {
		cfg.Analysis.MaxDistance, _ = flags.GetInt("max-distance")
	}
	if flags.Changed("locale-fallback") {
		cfg.Analysis.LocaleFallbacks, _ = flags.GetStringSlice("locale-fallback")
	}

	if err := loader.Validate(cfg); err != nil {
		return nil, errors.NewConfigError(cfg.File, err.Error())
	}
	if cfg.BrokenPaths == "" {
		return nil, errors.NewErrorBuilder().
			WithOperation("configuration loading").
			WithError(fmt.Errorf("no broken path file given")).
			WithCode(errors.ErrCodeInvalidConfig).
			WithSuggestion("Pass the file as an argument, with --broken-paths, or set 'broken_paths' in cfpaths.yaml.").
			Build()
	}

	return cfg, nil
}

// NewLogger builds the run logger from config and the global verbosity flags
func NewLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	return logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: verbose,
		Quiet:   quiet,
	})
}

// Runner performs audit runs for one configuration
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	now    func() time.Time
}

// NewRunner creates a Runner writing reports to out unless the config names
// an output file
func NewRunner(cfg *config.Config, logger *zap.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger, out: out, now: time.Now}
}

// Run performs one audit. Inventory, broken path and author connection
// failures abort the run; rule failures only degrade individual paths.
func (r *Runner) Run(ctx context.Context) error {
	rc := analysis.NewRunContext(r.logger)
	log := rc.Logger
	started := r.now()

	idx := index.New()
	if r.cfg.Inventory != "" {
		count, err := inventory.Populate(ctx, inventory.Open(r.cfg.Inventory), idx)
		if err != nil {
			return errors.NewInventoryError(r.cfg.Inventory, err)
		}
		log.Info("Loaded content inventory", zap.String("source", r.cfg.Inventory), zap.Int("paths", count))
	} else {
		log.Warn("No content inventory configured; suggestions will not be verified")
	}

	paths, err := brokenpaths.NewFileSource(r.cfg.BrokenPaths).FetchBrokenPaths(ctx)
	if err != nil {
		return errors.NewBrokenPathsError(r.cfg.BrokenPaths, err)
	}
	log.Info("Loaded broken paths", zap.String("source", r.cfg.BrokenPaths), zap.Int("paths", len(paths)))

	var client rules.ContentClient
	var authorClient *author.Client
	if r.cfg.Author.URL != "" {
		authorClient = r.newAuthorClient()
		if err := authorClient.Ping(ctx); err != nil {
			return errors.NewAuthorAPIError(r.cfg.Author.URL, err)
		}
		client = authorClient
	}

	strategy := analysis.NewStrategy(rc, client, idx,
		analysis.WithRuleConfig(rules.Config{
			LocaleFallbacks: r.cfg.Analysis.LocaleFallbacks,
			MaxDistance:     r.cfg.Analysis.MaxDistance,
		}),
		analysis.WithConcurrency(r.cfg.Analysis.Concurrency),
		analysis.WithRuleTimeout(r.cfg.Analysis.RuleTimeout),
	)
	suggestions := strategy.Analyze(ctx, paths)
	if err := ctx.Err(); err != nil {
		return err
	}

	rep := report.New(rc.RunID, r.now(), suggestions)
	if err := r.write(ctx, rep); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int("total", rep.Summary.Total),
		zap.Int("resolved", rep.Summary.Resolved()),
		zap.Duration("elapsed", r.now().Sub(started)),
	}
	if authorClient != nil {
		fields = append(fields, zap.Float64("author_cache_hit_ratio", authorClient.CacheStats().HitRatio()))
	}
	log.Info("Audit run complete", fields...)
	return nil
}

func (r *Runner) newAuthorClient() *author.Client {
	return author.NewClient(r.cfg.Author.URL, r.cfg.Author.Token,
		author.WithRateLimit(r.cfg.Author.RateLimit),
		author.WithTimeout(r.cfg.Author.Timeout),
		author.WithPageSize(r.cfg.Author.PageSize),
		author.WithCache(cache.Config{
			MaxSize:    r.cfg.Cache.MaxSize,
			DefaultTTL: r.cfg.Cache.TTL,
		}),
	)
}

func (r *Runner) write(ctx context.Context, rep *report.Report) error {
	formatter, err := report.NewFormatter(r.cfg.Output.Format, report.Options{})
	if err != nil {
		return errors.NewConfigError(r.cfg.File, err.Error())
	}

	if r.cfg.Output.File == "" {
		return formatter.Format(ctx, rep, r.out)
	}

	file, err := os.Create(r.cfg.Output.File)
	if err != nil {
		if os.IsPermission(err) {
			return errors.NewPermissionError(r.cfg.Output.File, "report.write")
		}
		return errors.WrapError(err, "report.write", r.cfg.Output.File)
	}
	if err := formatter.Format(ctx, rep, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return file.Close()
}
