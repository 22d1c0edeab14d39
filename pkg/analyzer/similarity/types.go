package similarity

import "sort"

// FileRecord holds the per-file stats produced by the pipeline. The
// canonical sequence itself is discarded once the fingerprint set is
// computed; only its length survives as a similarity weight.
type FileRecord struct {
	Path           string            `json:"path"`
	Collection     string            `json:"collection"`
	RawTokens      int               `json:"raw_len"`
	NormTokens     int               `json:"norm_len"`
	Fingerprints   uint64            `json:"fingerprints_count"`
	RenameTable    map[string]string `json:"id_map"`
	Preview        []string          `json:"first_norm_tokens,omitempty"`
	SequenceDigest uint64            `json:"sequence_digest"`
}

// Pair is the Jaccard score for one (A-file, B-file) combination.
type Pair struct {
	FileA         string  `json:"file_a"`
	FileB         string  `json:"file_b"`
	Jaccard       float64 `json:"jaccard"`
	FingerprintsA uint64  `json:"a_fp"`
	FingerprintsB uint64  `json:"b_fp"`
}

// Warning records a file that was skipped without aborting the run.
type Warning struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
}

// Summary provides aggregate statistics for one comparison run.
type Summary struct {
	FilesA        int     `json:"files_a"`
	FilesB        int     `json:"files_b"`
	SkippedFiles  int     `json:"skipped_files"`
	ComparedPairs int     `json:"compared_pairs"`
	ScoreAToB     float64 `json:"score_a_to_b"`
	ScoreBToA     float64 `json:"score_b_to_a"`
	MaxPairScore  float64 `json:"max_pair_score"`
	P50PairScore  float64 `json:"p50_pair_score"`
	P95PairScore  float64 `json:"p95_pair_score"`
}

// Analysis is the full result document for one comparison run. It is the
// sole contract with the reporting layer and serializes to JSON.
type Analysis struct {
	RepoA      string       `json:"repo_a"`
	RepoB      string       `json:"repo_b"`
	FilesA     []string     `json:"files_a"`
	FilesB     []string     `json:"files_b"`
	PerFile    []FileRecord `json:"per_file"`
	Pairs      []Pair       `json:"pairs"`
	Overall    float64      `json:"overall_repo_similarity"`
	Summary    Summary      `json:"summary"`
	Warnings   []Warning    `json:"warnings,omitempty"`
	Incomplete bool         `json:"incomplete"`
}

// TopPairs returns the n highest-scoring pairs, ties broken by path for
// stable output.
func (a *Analysis) TopPairs(n int) []Pair {
	pairs := make([]Pair, len(a.Pairs))
	copy(pairs, a.Pairs)

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Jaccard != pairs[j].Jaccard {
			return pairs[i].Jaccard > pairs[j].Jaccard
		}
		if pairs[i].FileA != pairs[j].FileA {
			return pairs[i].FileA < pairs[j].FileA
		}
		return pairs[i].FileB < pairs[j].FileB
	})

	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
