package similarity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tmarland/kindred/internal/fileproc"
	"github.com/tmarland/kindred/pkg/config"
	"github.com/tmarland/kindred/pkg/fingerprint"
	"github.com/tmarland/kindred/pkg/normalize"
	"github.com/tmarland/kindred/pkg/source"
	"github.com/tmarland/kindred/pkg/stats"
	"github.com/tmarland/kindred/pkg/tokenizer"
)

// Analyzer runs the full comparison pipeline: tokenize, normalize,
// fingerprint, then pairwise Jaccard with a weighted repo-level
// aggregate. Construct with NewAnalyzer and reuse across runs; it is
// safe for concurrent use.
type Analyzer struct {
	shingleSize int
	preview     int
	maxFileSize int64
	maxTokens   int
	workers     int
	rules       tokenizer.Rules
	logger      zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig applies analysis, grammar, and limit settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		a.shingleSize = cfg.Analysis.ShingleSize
		a.preview = cfg.Analysis.PreviewTokens
		a.workers = cfg.Analysis.Workers
		a.maxFileSize = cfg.Limits.MaxFileSize
		a.maxTokens = cfg.Limits.MaxTokens
		a.rules = tokenizer.Rules{
			Keywords:     cfg.Keywords(),
			LineComments: cfg.LineComments(),
		}
	}
}

// WithShingleSize sets the k-gram window length.
func WithShingleSize(k int) Option {
	return func(a *Analyzer) { a.shingleSize = k }
}

// WithPreviewTokens sets how many normalized tokens each file record
// retains for inspection. Zero disables previews.
func WithPreviewTokens(n int) Option {
	return func(a *Analyzer) { a.preview = n }
}

// WithMaxFileSize sets the per-file byte cap. Oversized files are
// skipped with a warning. Zero means no limit.
func WithMaxFileSize(n int64) Option {
	return func(a *Analyzer) { a.maxFileSize = n }
}

// WithMaxTokens sets the per-file raw token cap. Zero means no limit.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) { a.maxTokens = n }
}

// WithWorkers sets the worker pool size. Zero means 2x NumCPU.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// WithGrammar replaces the token grammar.
func WithGrammar(rules tokenizer.Rules) Option {
	return func(a *Analyzer) { a.rules = rules }
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// NewAnalyzer builds an Analyzer from defaults plus options.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{logger: zerolog.Nop()}
	WithConfig(config.DefaultConfig())(a)

	for _, opt := range opts {
		opt(a)
	}

	if a.shingleSize < 1 {
		return nil, fmt.Errorf("shingle size must be at least 1, got %d", a.shingleSize)
	}
	if len(a.rules.Keywords) == 0 {
		return nil, fmt.Errorf("token grammar has no keywords")
	}
	return a, nil
}

// Collection names one side of a comparison: a label, the relative
// paths to compare, and the source their contents are read from.
type Collection struct {
	Name   string
	Files  []string
	Source source.ContentSource
}

type fileEntry struct {
	record FileRecord
	set    *fingerprint.Set
}

// pairRow holds one A-file's scores against every B-file.
type pairRow struct {
	pathA string
	pairs []Pair
}

// AnalyzeRepos compares two collections and returns the full result
// document. Unreadable or oversized files are skipped and recorded as
// warnings; only a misconfigured analyzer aborts the run.
func (a *Analyzer) AnalyzeRepos(colA, colB Collection) (*Analysis, error) {
	return a.AnalyzeReposWithProgress(colA, colB, nil)
}

// AnalyzeReposWithProgress is AnalyzeRepos with a per-file progress
// callback. The callback fires once per input file, including skipped
// ones, so a tracker sized len(A)+len(B) completes exactly.
func (a *Analyzer) AnalyzeReposWithProgress(colA, colB Collection, onProgress fileproc.ProgressFunc) (*Analysis, error) {
	var (
		mu       sync.Mutex
		warnings []Warning
	)
	warn := func(collection string) fileproc.ErrorFunc {
		return func(path string, err error) {
			mu.Lock()
			warnings = append(warnings, Warning{Collection: collection, Path: path, Reason: err.Error()})
			mu.Unlock()
			a.logger.Warn().Str("collection", collection).Str("path", path).Err(err).Msg("skipping file")
		}
	}

	entriesA := a.processCollection(colA, onProgress, warn(colA.Name))
	entriesB := a.processCollection(colB, onProgress, warn(colB.Name))

	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Collection != warnings[j].Collection {
			return warnings[i].Collection < warnings[j].Collection
		}
		return warnings[i].Path < warnings[j].Path
	})

	result := &Analysis{
		RepoA:    colA.Name,
		RepoB:    colB.Name,
		FilesA:   sortedCopy(colA.Files),
		FilesB:   sortedCopy(colB.Files),
		Pairs:    []Pair{},
		Warnings: warnings,
	}
	for _, e := range entriesA {
		result.PerFile = append(result.PerFile, e.record)
	}
	for _, e := range entriesB {
		result.PerFile = append(result.PerFile, e.record)
	}

	result.Summary.FilesA = len(entriesA)
	result.Summary.FilesB = len(entriesB)
	result.Summary.SkippedFiles = len(warnings)

	// An empty side yields no evidence either way. Score zero and flag
	// the run rather than guessing.
	if len(entriesA) == 0 || len(entriesB) == 0 {
		result.Incomplete = true
		a.logger.Warn().
			Int("files_a", len(entriesA)).
			Int("files_b", len(entriesB)).
			Msg("one or both collections are empty, similarity is zero")
		return result, nil
	}

	rows := a.scorePairs(entriesA, entriesB)

	bestB := make(map[string]float64, len(entriesB))
	for _, row := range rows {
		result.Pairs = append(result.Pairs, row.pairs...)
		for _, p := range row.pairs {
			if p.Jaccard > bestB[p.FileB] {
				bestB[p.FileB] = p.Jaccard
			}
		}
	}
	result.Summary.ComparedPairs = len(result.Pairs)

	// Directional aggregates: each file contributes its best match on
	// the other side, weighted by normalized length so trivial files
	// cannot dominate the score.
	valuesA := make([]float64, len(entriesA))
	weightsA := make([]float64, len(entriesA))
	for i, e := range entriesA {
		for _, p := range rows[i].pairs {
			if p.Jaccard > valuesA[i] {
				valuesA[i] = p.Jaccard
			}
		}
		weightsA[i] = weightFor(e.record.NormTokens)
	}

	valuesB := make([]float64, len(entriesB))
	weightsB := make([]float64, len(entriesB))
	for i, e := range entriesB {
		valuesB[i] = bestB[e.record.Path]
		weightsB[i] = weightFor(e.record.NormTokens)
	}

	result.Summary.ScoreAToB = stats.WeightedMean(valuesA, weightsA)
	result.Summary.ScoreBToA = stats.WeightedMean(valuesB, weightsB)
	result.Overall = (result.Summary.ScoreAToB + result.Summary.ScoreBToA) / 2

	scores := make([]float64, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		scores = append(scores, p.Jaccard)
	}
	sort.Float64s(scores)
	if len(scores) > 0 {
		result.Summary.MaxPairScore = scores[len(scores)-1]
		result.Summary.P50PairScore = stats.Percentile(scores, 50)
		result.Summary.P95PairScore = stats.Percentile(scores, 95)
	}

	a.logger.Info().
		Str("repo_a", colA.Name).
		Str("repo_b", colB.Name).
		Int("pairs", len(result.Pairs)).
		Float64("overall", result.Overall).
		Msg("comparison complete")

	return result, nil
}

// FingerprintRepo runs the per-file pipeline over a single collection
// without pairwise scoring. Useful for inspecting what the normalizer
// and fingerprinter see.
func (a *Analyzer) FingerprintRepo(col Collection) ([]FileRecord, []Warning) {
	return a.FingerprintRepoWithProgress(col, nil)
}

// FingerprintRepoWithProgress is FingerprintRepo with a per-file
// progress callback.
func (a *Analyzer) FingerprintRepoWithProgress(col Collection, onProgress fileproc.ProgressFunc) ([]FileRecord, []Warning) {
	var (
		mu       sync.Mutex
		warnings []Warning
	)
	entries := a.processCollection(col, onProgress, func(path string, err error) {
		mu.Lock()
		warnings = append(warnings, Warning{Collection: col.Name, Path: path, Reason: err.Error()})
		mu.Unlock()
	})

	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Path < warnings[j].Path })

	records := make([]FileRecord, len(entries))
	for i, e := range entries {
		records[i] = e.record
	}
	return records, warnings
}

// processCollection runs the per-file pipeline in parallel and returns
// entries sorted by path. Files that fail are reported through onError
// and omitted.
func (a *Analyzer) processCollection(col Collection, onProgress fileproc.ProgressFunc, onError fileproc.ErrorFunc) []fileEntry {
	entries := fileproc.ForEachFileN(col.Files, a.workers, func(path string) (fileEntry, error) {
		return a.processFile(col, path)
	}, onProgress, onError)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].record.Path < entries[j].record.Path
	})
	return entries
}

func (a *Analyzer) processFile(col Collection, path string) (fileEntry, error) {
	data, err := col.Source.Read(path)
	if err != nil {
		return fileEntry{}, fmt.Errorf("read: %w", err)
	}
	if a.maxFileSize > 0 && int64(len(data)) > a.maxFileSize {
		return fileEntry{}, fmt.Errorf("file size %d exceeds limit %d", len(data), a.maxFileSize)
	}

	tokens := tokenizer.Tokenize(string(data), a.rules)
	if a.maxTokens > 0 && len(tokens) > a.maxTokens {
		return fileEntry{}, fmt.Errorf("token count %d exceeds limit %d", len(tokens), a.maxTokens)
	}

	norm, ctx := normalize.Normalize(tokens)
	set, err := fingerprint.Shingle(norm, a.shingleSize)
	if err != nil {
		return fileEntry{}, err
	}

	preview := norm
	if a.preview >= 0 && len(preview) > a.preview {
		preview = preview[:a.preview]
	}

	a.logger.Debug().
		Str("collection", col.Name).
		Str("path", path).
		Int("raw", len(tokens)).
		Int("norm", len(norm)).
		Uint64("fingerprints", set.Count()).
		Msg("processed file")

	return fileEntry{
		record: FileRecord{
			Path:           path,
			Collection:     col.Name,
			RawTokens:      len(tokens),
			NormTokens:     len(norm),
			Fingerprints:   set.Count(),
			RenameTable:    ctx.Table(),
			Preview:        append([]string(nil), preview...),
			SequenceDigest: fingerprint.SequenceDigest(norm),
		},
		set: set,
	}, nil
}

// scorePairs computes the full A x B Jaccard matrix, one row per
// A-file, parallel across rows. Rows come back sorted by A path so the
// flattened pair list is deterministic.
func (a *Analyzer) scorePairs(entriesA, entriesB []fileEntry) []pairRow {
	byPath := make(map[string]fileEntry, len(entriesA))
	paths := make([]string, len(entriesA))
	for i, e := range entriesA {
		byPath[e.record.Path] = e
		paths[i] = e.record.Path
	}

	rows := fileproc.ForEachFileN(paths, a.workers, func(pathA string) (pairRow, error) {
		entryA := byPath[pathA]
		row := pairRow{pathA: pathA, pairs: make([]Pair, 0, len(entriesB))}
		for _, entryB := range entriesB {
			row.pairs = append(row.pairs, Pair{
				FileA:         pathA,
				FileB:         entryB.record.Path,
				Jaccard:       entryA.set.Jaccard(entryB.set),
				FingerprintsA: entryA.record.Fingerprints,
				FingerprintsB: entryB.record.Fingerprints,
			})
		}
		return row, nil
	}, nil, nil)

	sort.Slice(rows, func(i, j int) bool { return rows[i].pathA < rows[j].pathA })
	return rows
}

func weightFor(normTokens int) float64 {
	if normTokens < 1 {
		return 1
	}
	return float64(normTokens)
}

func sortedCopy(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}
