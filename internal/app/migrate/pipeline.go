// Package migrate orchestrates the two-stage translation migration: extract
// pulls field annotations out of a REDCap project and flattens them into a
// translations CSV; fill loads that CSV and writes the texts into the empty
// slots of an MLM template. The CSV between the stages is the review
// artifact translators edit by hand, so the stages only ever meet on disk.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/adapter/redcap"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/annotation"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/domain"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/languages"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/mlm"
	"github.com/UCI-MIND/REDCap-Multi-Lingual-Migration/internal/translation"
)

// allStages defines the canonical execution order.
var allStages = []string{"extract", "fill"}

// Stages returns the canonical stage names in execution order.
func Stages() []string {
	return slices.Clone(allStages)
}

// MetadataFetcher supplies the project data dictionary.
type MetadataFetcher interface {
	Metadata(ctx context.Context) ([]redcap.Field, error)
}

// StageResult holds the outcome of a single pipeline stage.
type StageResult struct {
	Records   int // extract: metadata fields scanned; fill: table entries loaded
	Rows      int // extract: table rows produced; fill: slots filled
	Skipped   int // extract: unusable payloads; fill: malformed CSV rows dropped
	Missing   int // fill: keys with no usable text for the language
	Anomalies int // fill: field nodes without an id
	Duration  time.Duration
	Err       error
}

// Pipeline orchestrates the two-stage migration.
type Pipeline struct {
	log      *slog.Logger
	metadata MetadataFetcher
	catalog  *languages.Catalog
	opts     Options
	results  map[string]StageResult
}

// NewPipeline creates a new Pipeline. metadata may be nil when the extract
// stage is not going to run.
func NewPipeline(log *slog.Logger, metadata MetadataFetcher, catalog *languages.Catalog, opts Options) *Pipeline {
	return &Pipeline{
		log:      log,
		metadata: metadata,
		catalog:  catalog,
		opts:     opts,
		results:  make(map[string]StageResult),
	}
}

// Results returns stage results after Run completes.
func (p *Pipeline) Results() map[string]StageResult {
	return p.results
}

// HasErrors returns true if any stage recorded an error.
func (p *Pipeline) HasErrors() bool {
	for _, r := range p.results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the pipeline. If stages is non-empty, only the listed stages
// run, still in canonical order. The stages feed each other, so the first
// failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, stages []string) error {
	toRun := allStages
	if len(stages) > 0 {
		filter := make(map[string]bool, len(stages))
		for _, st := range stages {
			filter[st] = true
		}
		var filtered []string
		for _, st := range allStages {
			if filter[st] {
				filtered = append(filtered, st)
			}
		}
		toRun = filtered
	}

	for _, stage := range toRun {
		start := time.Now()
		p.log.Info("starting stage", slog.String("stage", stage))

		var result StageResult
		switch stage {
		case "extract":
			result = p.runExtract(ctx)
		case "fill":
			result = p.runFill(ctx)
		}
		result.Duration = time.Since(start)
		p.results[stage] = result

		if result.Err != nil {
			p.log.Error("stage failed",
				slog.String("stage", stage),
				slog.String("error", result.Err.Error()),
				slog.Duration("duration", result.Duration),
			)
			return fmt.Errorf("stage %s: %w", stage, result.Err)
		}
		p.log.Info("stage completed",
			slog.String("stage", stage),
			slog.Int("records", result.Records),
			slog.Int("rows", result.Rows),
			slog.Int("skipped", result.Skipped),
			slog.Duration("duration", result.Duration),
		)
	}

	p.log.Info("pipeline completed", slog.Int("stages_run", len(toRun)))
	return nil
}

// runExtract fetches the data dictionary, extracts translation rows from the
// annotated fields and writes the translations CSV.
func (p *Pipeline) runExtract(ctx context.Context) StageResult {
	if p.metadata == nil {
		return StageResult{Err: fmt.Errorf("redcap api url and token are not configured")}
	}

	fields, err := p.metadata.Metadata(ctx)
	if err != nil {
		return StageResult{Err: err}
	}

	// Annotation payloads key their texts by endonym; the CSV header uses
	// the English names. Both slices share the catalog's file order, so
	// column i of every row lines up with header column i.
	natives := p.catalog.Natives()
	var rows []domain.TranslationRow
	var stats annotation.Stats
	marked := 0
	for _, field := range fields {
		if !annotation.HasMarker(field.Annotation) {
			continue
		}
		marked++
		fieldRows, s := annotation.Extract(field.Name, field.Annotation, natives)
		rows = append(rows, fieldRows...)
		stats.Add(s)
	}

	p.log.Debug("annotations extracted",
		slog.Int("fields", len(fields)),
		slog.Int("with_markers", marked),
		slog.Int("markers", stats.Markers),
		slog.Int("choice_rows", stats.ChoiceRows),
		slog.Int("bad_payloads", stats.BadPayloads),
	)

	result := StageResult{Records: len(fields), Rows: len(rows), Skipped: stats.BadPayloads}

	if p.opts.DryRun {
		p.log.Info("dry run: translations file not written",
			slog.String("path", p.opts.TranslationsPath),
			slog.Int("rows", len(rows)),
		)
		return result
	}

	n, err := translation.WriteFile(p.opts.TranslationsPath, p.catalog.Names(), rows)
	if err != nil {
		result.Err = err
		return result
	}
	result.Rows = n

	p.log.Info("translations file written",
		slog.String("path", p.opts.TranslationsPath),
		slog.Int("rows", n),
	)
	return result
}

// runFill loads the translations CSV and the MLM template, fills the empty
// slots for the target language and writes the result.
func (p *Pipeline) runFill(ctx context.Context) StageResult {
	if p.opts.TemplatePath == "" {
		return StageResult{Err: fmt.Errorf("template path is required for the fill stage")}
	}
	if p.opts.Language == "" {
		return StageResult{Err: fmt.Errorf("target language is required for the fill stage")}
	}

	tbl, err := translation.Load(p.opts.TranslationsPath)
	if err != nil {
		return StageResult{Err: err}
	}
	for _, sk := range tbl.Skipped() {
		p.log.Warn("dropped malformed translations row",
			slog.Int("line", sk.Line),
			slog.String("field", sk.Field),
			slog.Int("empty_cells", sk.EmptyCells),
		)
	}

	doc, err := mlm.Load(p.opts.TemplatePath)
	if err != nil {
		return StageResult{Err: err}
	}

	stats, err := mlm.Fill(doc, tbl, p.opts.Language, p.catalog, p.opts.FoldQuotes)
	result := StageResult{
		Records:   tbl.Len(),
		Rows:      stats.Filled,
		Skipped:   len(tbl.Skipped()),
		Missing:   len(stats.Missing),
		Anomalies: stats.Anomalies,
	}
	if err != nil {
		result.Err = err
		return result
	}

	if len(stats.Missing) > 0 {
		p.log.Warn("template slots without translations",
			slog.Int("count", len(stats.Missing)),
			slog.Any("keys", stats.Missing),
		)
	}
	if stats.Anomalies > 0 {
		p.log.Warn("template field nodes without an id", slog.Int("count", stats.Anomalies))
	}
	if keys := tbl.Incomplete(); len(keys) > 0 {
		p.log.Debug("incomplete table entries", slog.Int("count", len(keys)), slog.Any("keys", keys))
	}
	if keys := tbl.Unconsumed(); len(keys) > 0 {
		p.log.Debug("table entries never looked up", slog.Int("count", len(keys)), slog.Any("keys", keys))
	}

	if p.opts.DryRun {
		p.log.Info("dry run: output file not written",
			slog.String("path", p.opts.OutputPath),
			slog.Int("filled", stats.Filled),
		)
		return result
	}

	if err := mlm.Write(p.opts.OutputPath, doc); err != nil {
		result.Err = err
		return result
	}

	p.log.Info("output file written",
		slog.String("path", p.opts.OutputPath),
		slog.Int("filled", stats.Filled),
	)
	return result
}
