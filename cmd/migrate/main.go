// Command migrate moves translations out of a legacy REDCap project's field
// annotations and into the Multi-Language Management template of its
// replacement project. The extract stage fetches the legacy data dictionary
// over the REDCap API, parses the "@p1000..." annotation markers and writes
// a translations CSV for human review. The fill stage reads that CSV plus an
// MLM template JSON and writes a copy of the template with its empty
// translation slots filled for one language.
//
// Flags:
//
//	--template        MLM template JSON exported from the new project (fill)
//	--language        target language name or two-letter code (fill)
//	--translations    translations CSV path (default: <output-dir>/<ts>-translations.csv)
//	--output          filled template path (default: <output-dir>/<ts>-<language>-output.json)
//	--stage           comma-separated stages to run: extract,fill (default: all)
//	--escaped-quotes  keep double quotes in translations instead of folding them to '
//	--insecure        skip TLS certificate verification for the REDCap API
//	--dry-run         parse and count without writing files
//	--config          path to YAML config file (default: $CONFIG_PATH or ./config.yaml)
//	--version         print version information and exit
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/adapter/redcap"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/app"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/app/migrate"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/config"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
)

// Compile-time interface assertion.
var _ migrate.MetadataFetcher = (*redcap.Client)(nil)

func main() {
	templateFlag := flag.String("template", "", "MLM template JSON exported from the new project")
	languageFlag := flag.String("language", "", "target language name or two-letter code")
	translationsFlag := flag.String("translations", "", "translations CSV path (default: timestamped file under the output dir)")
	outputFlag := flag.String("output", "", "filled template path (default: timestamped file under the output dir)")
	stageFlag := flag.String("stage", "", "comma-separated stages to run: extract,fill (default: all)")
	escapedQuotesFlag := flag.Bool("escaped-quotes", false, "keep double quotes in translations instead of folding them to single quotes")
	insecureFlag := flag.Bool("insecure", false, "skip TLS certificate verification for the REDCap API")
	dryRunFlag := flag.Bool("dry-run", false, "parse and count without writing files")
	configFlag := flag.String("config", "", "path to YAML config file")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(app.BuildVersion())
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger = logger.With(slog.String("run_id", uuid.New().String()))

	catalog, err := languages.Load(cfg.Paths.LanguagesFile)
	if err != nil {
		logger.Error("load languages table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Parse the stage filter. The pipeline silently ignores names it does
	// not know, so typos are caught here.
	var stages []string
	if *stageFlag != "" {
		stages = strings.Split(*stageFlag, ",")
		for i := range stages {
			stages[i] = strings.TrimSpace(stages[i])
		}
		known := migrate.Stages()
		for _, stage := range stages {
			if !slices.Contains(known, stage) {
				logger.Error("unknown stage",
					slog.String("stage", stage),
					slog.String("known", strings.Join(known, ",")),
				)
				os.Exit(1)
			}
		}
	}

	// The fill stage cannot start without a template and a language, so
	// reject such runs before extract touches the API.
	fillRuns := len(stages) == 0 || slices.Contains(stages, "fill")
	if fillRuns && (*templateFlag == "" || *languageFlag == "") {
		logger.Error("the fill stage requires -template and -language")
		os.Exit(1)
	}

	opts := migrate.Options{
		TemplatePath:     *templateFlag,
		Language:         *languageFlag,
		TranslationsPath: *translationsFlag,
		OutputPath:       *outputFlag,
		OutputDir:        cfg.Paths.OutputDir,
		FoldQuotes:       !*escapedQuotesFlag,
		DryRun:           *dryRunFlag,
	}
	if err := opts.Normalize(catalog, time.Now()); err != nil {
		logger.Error("invalid options", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The REDCap client is only built when the config carries credentials;
	// fill-only runs work entirely from local files.
	var fetcher migrate.MetadataFetcher
	if cfg.RedCap.HasAPI() {
		fetcher = redcap.New(redcap.Config{
			URL:      cfg.RedCap.APIURL,
			Token:    cfg.RedCap.APIToken,
			Insecure: cfg.RedCap.Insecure || *insecureFlag,
			Timeout:  cfg.RedCap.Timeout,
		}, logger)
	}

	// 10-minute context timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pipeline := migrate.NewPipeline(logger, fetcher, catalog, opts)
	if err := pipeline.Run(ctx, stages); err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("migration completed successfully")
}
