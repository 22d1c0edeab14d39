package fileproc

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
)

func TestForEachFile(t *testing.T) {
	files := []string{"a", "b", "c", "d"}

	results := ForEachFile(files, func(path string) (string, error) {
		return strings.ToUpper(path), nil
	})

	sort.Strings(results)
	if len(results) != 4 || results[0] != "A" || results[3] != "D" {
		t.Errorf("results = %v", results)
	}
}

func TestForEachFileEmpty(t *testing.T) {
	if got := ForEachFile(nil, func(string) (int, error) { return 0, nil }); got != nil {
		t.Errorf("ForEachFile(nil) = %v, want nil", got)
	}
}

func TestForEachFileErrorsSkipped(t *testing.T) {
	files := []string{"ok1", "bad", "ok2"}

	var errCount atomic.Int32
	results := ForEachFileN(files, 2, func(path string) (string, error) {
		if path == "bad" {
			return "", errors.New("boom")
		}
		return path, nil
	}, nil, func(path string, err error) {
		errCount.Add(1)
	})

	if len(results) != 2 {
		t.Errorf("results = %v, want 2 entries", results)
	}
	if errCount.Load() != 1 {
		t.Errorf("error callback count = %d, want 1", errCount.Load())
	}
}

func TestForEachFileProgress(t *testing.T) {
	var ticks atomic.Int32
	ForEachFileWithProgress([]string{"a", "b", "c"}, func(path string) (int, error) {
		if path == "b" {
			return 0, errors.New("fail")
		}
		return 1, nil
	}, func() {
		ticks.Add(1)
	})

	// Progress ticks for failed files too.
	if ticks.Load() != 3 {
		t.Errorf("progress ticks = %d, want 3", ticks.Load())
	}
}

func TestForEachFileWithContext(t *testing.T) {
	results, errs := ForEachFileWithContext(context.Background(), []string{"a", "b"}, func(path string) (string, error) {
		return path, nil
	})
	if errs != nil {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(results) != 2 {
		t.Errorf("results = %v", results)
	}
}

func TestForEachFileWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := make([]string, 100)
	for i := range files {
		files[i] = "f"
	}

	_, errs := ForEachFileWithContext(ctx, files, func(path string) (string, error) {
		return path, nil
	})
	if errs == nil || !errs.HasErrors() {
		t.Error("cancelled context should surface errors")
	}
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("fresh collection should have no errors")
	}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("x.java", errors.New("unreadable"))
	if !errs.HasErrors() {
		t.Error("HasErrors() should be true")
	}
	if !strings.Contains(errs.Error(), "x.java") {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("y.java", errors.New("too big"))
	if !strings.Contains(errs.Error(), "2 files failed") {
		t.Errorf("Error() = %q", errs.Error())
	}
}
