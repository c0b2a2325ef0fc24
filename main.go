// mtlkit — batch AI translation for game-script projects: RPG Maker MV/MZ,
// NScripter, and Wolf RPG Editor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/cache"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/config"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/engine"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/lang"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/nscript"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/provider"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/rpgmaker"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/translate"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/wolfarc"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// newRegistry builds the adapter registry in detection priority order: the
// most distinctive project layouts first so the loose line-script heuristic
// never shadows a specific one.
func newRegistry(cfg *config.Config) (*engine.Registry, error) {
	rpg, err := rpgmaker.New(cfg.EnabledCodes)
	if err != nil {
		return nil, err
	}
	onDegraded := func(err *unit.EncodingError) {
		logWarning("%v", err)
	}
	wolf := wolfarc.New(cfg.Slack)
	wolf.OnSkip = func(file, text, reason string) {
		logWarning("Skipped substitution in %s (%q): %s", file, truncate(text, 40), reason)
	}
	wolf.OnDegraded = onDegraded
	ns := nscript.New()
	ns.OnDegraded = onDegraded
	return engine.NewRegistry(rpg, wolf, ns), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mtlkit",
		Short: "Batch AI translation for game-script projects",
		Long: `mtlkit — batch AI translation for game-script projects.

Detects the game engine under the project root, extracts translatable
strings, translates them in batches through configured AI providers with
automatic fallback, and writes the results back without breaking the
artifact format. Originals are kept as .backup siblings.

Supported engines (detection priority order):
  rpgmaker    RPG Maker MV/MZ JSON data files
  wolf        Wolf RPG Editor archives and data text
  nscripter   NScripter script files

Configuration is read from mtl.yaml at the project root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newScanCmd(),
		newTranslateCmd(),
		newCodesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mtlkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Detect the engine and estimate translation volume",
		Long: `Detect the game engine under the project root and report the files
that would be processed, with per-file unit counts and a rough token
estimate. Does not modify anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			registry, err := newRegistry(cfg)
			if err != nil {
				return err
			}
			manifest, adapter, err := registry.Scan(rootDir)
			if err != nil {
				return err
			}

			logInfo("Detected engine: %s (%s)", adapter.Name(), manifest.Engine)
			logInfo("Files to process: %d", len(manifest.Files))

			totalUnits := 0
			totalChars := 0
			for _, path := range manifest.Files {
				units, err := adapter.Extract(path)
				if err != nil {
					logWarning("Cannot extract from %s: %v", path, err)
					continue
				}
				chars := 0
				for _, u := range units {
					chars += len([]rune(u.Text))
				}
				totalUnits += len(units)
				totalChars += chars
				fmt.Printf("  %-50s %5d units  %7d chars\n", path, len(units), chars)
			}
			// Japanese source averages roughly three characters per token.
			logInfo("Total: %d units, %d chars (~%d tokens)", totalUnits, totalChars, totalChars/3)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// codes
// ---------------------------------------------------------------------------

func newCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List RPG Maker event codes available for translation",
		Long: `List the RPG Maker event command codes that can be enabled in
mtl.yaml, with category and cost level. Only enabled codes are ever
touched; the recommended set covers main dialogue only.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-5s %-25s %-14s %-7s %s\n", "CODE", "NAME", "CATEGORY", "COST", "RECOMMENDED")
			for _, c := range rpgmaker.Catalog() {
				rec := ""
				if c.Recommended {
					rec = "yes"
				}
				fmt.Printf("%-5d %-25s %-14s %-7s %s\n", c.Code, c.Name, c.Category, c.CostLevel, rec)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		flagEngine       string
		flagBatchSize    int
		flagFileWorkers  int
		flagBatchWorkers int
		flagCodes        []int
		flagLanguage     string
		flagNoCache      bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the project in place",
		Long: `Detect the engine, extract translatable strings, translate them in
batches through the configured providers, and write the results back.
Each rewritten file keeps its original as a .backup sibling.

Ctrl-C stops the run after the in-flight batches return; files already
completed keep their translations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			if flagBatchSize > 0 {
				cfg.BatchSize = flagBatchSize
			}
			if flagFileWorkers > 0 {
				cfg.FileWorkers = flagFileWorkers
			}
			if flagBatchWorkers > 0 {
				cfg.BatchWorkers = flagBatchWorkers
			}
			if len(flagCodes) > 0 {
				cfg.EnabledCodes = flagCodes
			}
			if flagLanguage != "" {
				cfg.TargetLanguage = lang.Resolve(flagLanguage)
			}

			registry, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			var adapter engine.Adapter
			var manifest *engine.Manifest
			if flagEngine != "" {
				adapter, err = registry.ByID(flagEngine)
				if err != nil {
					return err
				}
				files, err := adapter.Files(rootDir)
				if err != nil {
					return err
				}
				manifest = &engine.Manifest{Engine: adapter.ID(), Files: files}
			} else {
				manifest, adapter, err = registry.Scan(rootDir)
				if err != nil {
					return err
				}
			}
			if len(manifest.Files) == 0 {
				logWarning("No files to translate in %s", rootDir)
				return nil
			}

			clients, err := cfg.Clients()
			if err != nil {
				return err
			}
			providers := provider.NewSet(clients, cfg.ProviderMaxFailures, cfg.ProviderCooldown)

			var tm *cache.Cache
			if !flagNoCache {
				tm, err = cache.Load(rootDir)
				if err != nil {
					return err
				}
				if n := tm.Len(cfg.TargetLanguage); n > 0 {
					logInfo("Translation cache: %d entries for %s", n, cfg.TargetLanguage)
				}
			}

			logInfo("Engine: %s, %d files, %d providers, target language: %s",
				adapter.Name(), len(manifest.Files), providers.Len(), cfg.TargetLanguage)

			progress := mpb.New(mpb.WithWidth(50), mpb.WithOutput(os.Stderr))
			bars := make(map[string]*mpb.Bar)
			var barsMu sync.Mutex

			runner := translate.NewRunner(adapter, providers, translate.Options{
				BatchSize:         cfg.BatchSize,
				FileWorkers:       cfg.FileWorkers,
				BatchWorkers:      cfg.BatchWorkers,
				Timeout:           cfg.Timeout,
				MaxRetries:        cfg.MaxRetries,
				RateLimitCooldown: cfg.RateLimitCooldown,
				Cache:             tm,
				TargetLanguage:    cfg.TargetLanguage,
				OnLog:             logInfo,
				OnError:           logWarning,
				OnProgress: func(file string, done, total int) {
					barsMu.Lock()
					defer barsMu.Unlock()
					bar, ok := bars[file]
					if !ok {
						bar = progress.AddBar(int64(total),
							mpb.PrependDecorators(decor.Name(file, decor.WCSyncSpaceR)),
							mpb.AppendDecorators(
								decor.Percentage(decor.WC{W: 5}),
								decor.Counters(0, " | %d/%d"),
							),
						)
						bars[file] = bar
					}
					if delta := int64(done) - bar.Current(); delta > 0 {
						bar.IncrBy(int(delta))
					}
				},
			})

			// Ctrl-C requests a cooperative stop; in-flight batches finish,
			// then the run winds down.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				logWarning("Interrupt received, stopping after in-flight batches...")
				runner.Control().Stop()
			}()

			report, err := runner.Run(ctx, manifest.Files)
			progress.Wait()
			printReport(report)
			return err
		},
	}

	cmd.Flags().StringVar(&flagEngine, "engine", "", "Force an engine instead of auto-detection (rpgmaker, wolf, nscripter)")
	cmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Units per provider call (overrides mtl.yaml)")
	cmd.Flags().IntVar(&flagFileWorkers, "file-workers", 0, "Files processed in parallel (overrides mtl.yaml)")
	cmd.Flags().IntVar(&flagBatchWorkers, "batch-workers", 0, "Batches per file translated in parallel (overrides mtl.yaml)")
	cmd.Flags().IntSliceVar(&flagCodes, "codes", nil, "Enabled RPG Maker event codes (overrides mtl.yaml)")
	cmd.Flags().StringVar(&flagLanguage, "language", "", "Target language (overrides mtl.yaml)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Skip the mtl.lock translation cache")

	return cmd
}

func printReport(report *translate.Report) {
	translated, skipped, failed := 0, 0, 0
	for _, o := range report.Outcomes {
		switch o.Status {
		case translate.OutcomeTranslated:
			translated++
		case translate.OutcomeSkipped:
			skipped++
			if o.Reason != "no translatable text" && o.Reason != "" {
				logWarning("Skipped %s: %s", o.File, o.Reason)
			}
		case translate.OutcomeFailed:
			failed++
			logError("Failed %s: %s", o.File, o.Reason)
		}
	}
	switch report.State {
	case translate.StateCompleted:
		logSuccess("Run completed: %d translated, %d skipped, %d failed", translated, skipped, failed)
	case translate.StateStopped:
		logWarning("Run stopped: %d translated, %d skipped, %d failed", translated, skipped, failed)
	case translate.StateFailedFatal:
		logError("Run aborted: %v (%d files translated before the failure)", report.Fatal, translated)
	}
}
