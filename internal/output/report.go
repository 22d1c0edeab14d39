package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/tmarland/kindred/pkg/analyzer/similarity"
)

// DefaultTopPairs is how many pairs the text and markdown reports show.
const DefaultTopPairs = 10

// CompareReport renders a similarity analysis. JSON output carries the
// complete document; text and markdown show the aggregate plus the
// highest-scoring pairs.
type CompareReport struct {
	Analysis *similarity.Analysis
	TopN     int
}

func NewCompareReport(analysis *similarity.Analysis) *CompareReport {
	return &CompareReport{Analysis: analysis, TopN: DefaultTopPairs}
}

func (r *CompareReport) RenderData() any {
	return r.Analysis
}

func (r *CompareReport) RenderText(w io.Writer, colored bool) error {
	a := r.Analysis

	title := fmt.Sprintf("Similarity: %s vs %s", a.RepoA, a.RepoB)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintln(w)

	overall := fmt.Sprintf("%.4f", a.Overall)
	if colored {
		overall = ScoreColor(a.Overall, overall)
	}
	fmt.Fprintf(w, "Overall similarity: %s\n", overall)
	fmt.Fprintf(w, "  %s -> %s: %.4f\n", a.RepoA, a.RepoB, a.Summary.ScoreAToB)
	fmt.Fprintf(w, "  %s -> %s: %.4f\n", a.RepoB, a.RepoA, a.Summary.ScoreBToA)
	fmt.Fprintf(w, "Files compared: %d vs %d (%d pairs, %d skipped)\n",
		a.Summary.FilesA, a.Summary.FilesB, a.Summary.ComparedPairs, a.Summary.SkippedFiles)

	if a.Incomplete {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "One or both collections contained no comparable files.")
		return nil
	}
	fmt.Fprintln(w)

	if err := r.pairTable().RenderText(w, colored); err != nil {
		return err
	}

	for _, warn := range a.Warnings {
		fmt.Fprintf(w, "skipped %s/%s: %s\n", warn.Collection, warn.Path, warn.Reason)
	}
	return nil
}

func (r *CompareReport) RenderMarkdown(w io.Writer) error {
	a := r.Analysis

	fmt.Fprintf(w, "# Similarity: %s vs %s\n\n", a.RepoA, a.RepoB)
	fmt.Fprintf(w, "**Overall similarity: %.4f**\n\n", a.Overall)
	fmt.Fprintf(w, "- %s -> %s: %.4f\n", a.RepoA, a.RepoB, a.Summary.ScoreAToB)
	fmt.Fprintf(w, "- %s -> %s: %.4f\n", a.RepoB, a.RepoA, a.Summary.ScoreBToA)
	fmt.Fprintf(w, "- Files compared: %d vs %d (%d pairs, %d skipped)\n\n",
		a.Summary.FilesA, a.Summary.FilesB, a.Summary.ComparedPairs, a.Summary.SkippedFiles)

	if a.Incomplete {
		fmt.Fprintln(w, "One or both collections contained no comparable files.")
		return nil
	}

	if err := r.pairTable().RenderMarkdown(w); err != nil {
		return err
	}

	if len(a.Warnings) > 0 {
		fmt.Fprintln(w, "## Skipped files")
		fmt.Fprintln(w)
		for _, warn := range a.Warnings {
			fmt.Fprintf(w, "- `%s/%s`: %s\n", warn.Collection, warn.Path, warn.Reason)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (r *CompareReport) pairTable() *Table {
	n := r.TopN
	if n <= 0 {
		n = DefaultTopPairs
	}
	top := r.Analysis.TopPairs(n)

	rows := make([][]string, len(top))
	for i, p := range top {
		rows[i] = []string{
			p.FileA,
			p.FileB,
			fmt.Sprintf("%.4f", p.Jaccard),
			fmt.Sprintf("%d / %d", p.FingerprintsA, p.FingerprintsB),
		}
	}

	return NewTable("Top matches", []string{"File A", "File B", "Jaccard", "Fingerprints"}, rows, nil, r.Analysis)
}
