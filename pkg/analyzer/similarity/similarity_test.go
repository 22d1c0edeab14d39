package similarity

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarland/kindred/pkg/source"
)

const gcdJava = `
public class MathUtil {
    public static int gcd(int a, int b) {
        while (b != 0) {
            int t = b;
            b = a % b;
            a = t;
        }
        return a;
    }
}
`

// gcdJavaRenamed is gcdJava with every identifier renamed and the
// literals changed. The normalized form is identical.
const gcdJavaRenamed = `
public class NumberHelper {
    public static int greatest(int x, int y) {
        while (y != 0) {
            int held = y;
            y = x % y;
            x = held;
        }
        return x;
    }
}
`

const fizzBuzzJS = `
function fizzbuzz(n) {
  const out = [];
  for (let i = 1; i <= n; i++) {
    if (i % 15 === 0) out.push("FizzBuzz");
    else if (i % 3 === 0) out.push("Fizz");
    else if (i % 5 === 0) out.push("Buzz");
    else out.push(String(i));
  }
  return out;
}
`

func collection(name string, files map[string][]byte) Collection {
	src := source.MapSource(files)
	return Collection{Name: name, Files: src.Paths(), Source: src}
}

func TestAnalyzeRepos_RenamedCopyScoresOne(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", map[string][]byte{"NumberHelper.java": []byte(gcdJavaRenamed)}),
	)
	require.NoError(t, err)

	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 1.0, result.Pairs[0].Jaccard, "renaming identifiers must not change the score")
	assert.Equal(t, 1.0, result.Overall)
	assert.False(t, result.Incomplete)
}

func TestAnalyzeRepos_UnrelatedFilesScoreZero(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", map[string][]byte{"fizzbuzz.js": []byte(fizzBuzzJS)}),
	)
	require.NoError(t, err)

	require.Len(t, result.Pairs, 1)
	assert.Less(t, result.Pairs[0].Jaccard, 0.1)
	assert.Less(t, result.Overall, 0.1)
}

func TestAnalyzeRepos_ShortDisjointFilesScoreExactlyZero(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	// Three keywords normalize to a single whole-sequence fingerprint
	// at the default window size. With nothing shared on the other
	// side, both the pair and the aggregate are exactly zero.
	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"a.java": []byte("if else return")}),
		collection("suspect", map[string][]byte{"b.java": []byte("while break continue")}),
	)
	require.NoError(t, err)

	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 0.0, result.Pairs[0].Jaccard)
	assert.Equal(t, 0.0, result.Overall)
}

func TestAnalyzeRepos_EmptyCollection(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", nil),
	)
	require.NoError(t, err)

	assert.True(t, result.Incomplete)
	assert.Equal(t, 0.0, result.Overall)
	assert.Empty(t, result.Pairs)
	assert.Equal(t, 1, result.Summary.FilesA)
	assert.Equal(t, 0, result.Summary.FilesB)
}

func TestAnalyzeRepos_UnreadableFileBecomesWarning(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	colA := collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)})
	colA.Files = append(colA.Files, "missing.java")

	result, err := a.AnalyzeRepos(
		colA,
		collection("suspect", map[string][]byte{"Copy.java": []byte(gcdJava)}),
	)
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "original", result.Warnings[0].Collection)
	assert.Equal(t, "missing.java", result.Warnings[0].Path)
	assert.Equal(t, 1, result.Summary.SkippedFiles)

	// The surviving file still compares.
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 1.0, result.Overall)
}

func TestAnalyzeRepos_OversizedFileSkipped(t *testing.T) {
	a, err := NewAnalyzer(WithMaxFileSize(16))
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", map[string][]byte{"Copy.java": []byte(gcdJava)}),
	)
	require.NoError(t, err)

	assert.Len(t, result.Warnings, 2)
	assert.True(t, result.Incomplete)
}

func TestAnalyzeRepos_TokenCapSkipped(t *testing.T) {
	a, err := NewAnalyzer(WithMaxTokens(5))
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", map[string][]byte{"tiny.js": []byte("let x = 1")}),
	)
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "MathUtil.java", result.Warnings[0].Path)
}

func TestAnalyzeRepos_DeterministicAcrossInputOrder(t *testing.T) {
	a, err := NewAnalyzer(WithWorkers(4))
	require.NoError(t, err)

	files := map[string][]byte{
		"a.java": []byte(gcdJava),
		"b.js":   []byte(fizzBuzzJS),
		"c.java": []byte(gcdJavaRenamed),
	}
	colB := collection("suspect", map[string][]byte{"x.java": []byte(gcdJava)})

	forward := collection("original", files)
	reversed := collection("original", files)
	for i, j := 0, len(reversed.Files)-1; i < j; i, j = i+1, j-1 {
		reversed.Files[i], reversed.Files[j] = reversed.Files[j], reversed.Files[i]
	}

	r1, err := a.AnalyzeRepos(forward, colB)
	require.NoError(t, err)
	r2, err := a.AnalyzeRepos(reversed, colB)
	require.NoError(t, err)

	assert.Equal(t, r1.Pairs, r2.Pairs)
	assert.Equal(t, r1.Overall, r2.Overall)
	assert.Equal(t, r1.FilesA, r2.FilesA)
}

func TestAnalyzeRepos_WeightedAggregate(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	// One large copied file and one small unrelated file on side A. The
	// copy should dominate the weighted score.
	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{
			"big.java": []byte(gcdJava),
			"small.js": []byte("let x = 1;"),
		}),
		collection("suspect", map[string][]byte{"copy.java": []byte(gcdJava)}),
	)
	require.NoError(t, err)

	assert.Greater(t, result.Summary.ScoreAToB, 0.7)
	assert.Equal(t, 1.0, result.Summary.ScoreBToA)
}

func TestAnalyzeRepos_PerFileRecords(t *testing.T) {
	a, err := NewAnalyzer(WithPreviewTokens(4))
	require.NoError(t, err)

	result, err := a.AnalyzeRepos(
		collection("original", map[string][]byte{"MathUtil.java": []byte(gcdJava)}),
		collection("suspect", map[string][]byte{"fizzbuzz.js": []byte(fizzBuzzJS)}),
	)
	require.NoError(t, err)

	require.Len(t, result.PerFile, 2)
	rec := result.PerFile[0]
	assert.Equal(t, "MathUtil.java", rec.Path)
	assert.Equal(t, "original", rec.Collection)
	assert.Positive(t, rec.RawTokens)
	assert.Equal(t, rec.RawTokens, rec.NormTokens)
	assert.Positive(t, rec.Fingerprints)
	assert.Len(t, rec.Preview, 4)
	assert.NotZero(t, rec.SequenceDigest)
	assert.Contains(t, rec.RenameTable, "MathUtil")
}

func TestAnalyzeReposWithProgress_CountsEveryInputFile(t *testing.T) {
	a, err := NewAnalyzer(WithMaxFileSize(16))
	require.NoError(t, err)

	colA := collection("original", map[string][]byte{
		"a.java": []byte(gcdJava), // skipped by the size cap
		"b.js":   []byte("x = 1"),
	})
	colB := collection("suspect", map[string][]byte{"c.js": []byte("y = 2")})

	var ticks atomic.Int64
	_, err = a.AnalyzeReposWithProgress(colA, colB, func() { ticks.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, int64(3), ticks.Load())
}

func TestFingerprintRepo(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	col := collection("original", map[string][]byte{
		"a.java": []byte(gcdJava),
		"b.js":   []byte(fizzBuzzJS),
	})
	col.Files = append(col.Files, "missing.java")

	records, warnings := a.FingerprintRepo(col)

	require.Len(t, records, 2)
	assert.Equal(t, "a.java", records[0].Path)
	assert.Equal(t, "b.js", records[1].Path)
	assert.Positive(t, records[0].Fingerprints)

	require.Len(t, warnings, 1)
	assert.Equal(t, "missing.java", warnings[0].Path)
}

func TestNewAnalyzer_RejectsBadShingleSize(t *testing.T) {
	_, err := NewAnalyzer(WithShingleSize(0))
	assert.Error(t, err)
}

func TestTopPairs(t *testing.T) {
	result := &Analysis{Pairs: []Pair{
		{FileA: "a", FileB: "x", Jaccard: 0.2},
		{FileA: "b", FileB: "y", Jaccard: 0.9},
		{FileA: "a", FileB: "y", Jaccard: 0.9},
		{FileA: "c", FileB: "z", Jaccard: 0.5},
	}}

	top := result.TopPairs(3)
	require.Len(t, top, 3)
	assert.Equal(t, "a", top[0].FileA)
	assert.Equal(t, "b", top[1].FileA)
	assert.Equal(t, 0.5, top[2].Jaccard)

	// Source order is untouched.
	assert.Equal(t, 0.2, result.Pairs[0].Jaccard)
}
