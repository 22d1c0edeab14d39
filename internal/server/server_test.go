package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tmarland/kindred/pkg/analyzer/similarity"
	"github.com/tmarland/kindred/pkg/config"
)

const sampleJava = `
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

const renamedJava = `
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

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	analyzer, err := similarity.NewAnalyzer(similarity.WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return NewRouter(NewHandler(cfg, analyzer))
}

func multipartBody(t *testing.T, files map[string]map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, parts := range files {
		for name, content := range parts {
			fw, err := w.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("CreateFormFile: %v", err)
			}
			fw.Write([]byte(content))
		}
	}
	w.Close()
	return body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("got %v", resp)
	}
}

func TestCompareRenamedCopy(t *testing.T) {
	router := newTestRouter(t, nil)

	body, contentType := multipartBody(t, map[string]map[string]string{
		"repoA": {"MathUtil.java": sampleJava},
		"repoB": {"NumberHelper.java": renamedJava},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result similarity.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Overall != 1.0 {
		t.Errorf("overall = %v, want 1.0", result.Overall)
	}
	if len(result.Pairs) != 1 {
		t.Errorf("pairs = %d, want 1", len(result.Pairs))
	}
	if result.RepoA != "repoA" || result.RepoB != "repoB" {
		t.Errorf("collection names = %q, %q", result.RepoA, result.RepoB)
	}
}

func TestCompareOneSideEmpty(t *testing.T) {
	router := newTestRouter(t, nil)

	body, contentType := multipartBody(t, map[string]map[string]string{
		"repoA": {"MathUtil.java": sampleJava},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result similarity.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result.Incomplete || result.Overall != 0 {
		t.Errorf("empty side should flag the run: incomplete=%v overall=%v", result.Incomplete, result.Overall)
	}
}

func TestCompareNoFiles(t *testing.T) {
	router := newTestRouter(t, nil)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Code != "EMPTY_UPLOAD" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestCompareRejectsTraversal(t *testing.T) {
	router := newTestRouter(t, nil)

	body, contentType := multipartBody(t, map[string]map[string]string{
		"repoA": {"../../etc/passwd": "root"},
		"repoB": {"x.java": sampleJava},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Code != "INVALID_UPLOAD" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestCompareUploadCap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxUploadBytes = 64
	router := newTestRouter(t, cfg)

	body, contentType := multipartBody(t, map[string]map[string]string{
		"repoA": {"a.java": sampleJava},
		"repoB": {"b.java": sampleJava},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized upload", rec.Code)
	}
}

func TestSanitizeUploadPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"Main.java", "Main.java", false},
		{"src/util/Main.java", "src/util/Main.java", false},
		{"src\\util\\Main.java", "src/util/Main.java", false},
		{"./src/Main.java", "src/Main.java", false},
		{"../Main.java", "", true},
		{"/etc/passwd", "", true},
		{"a/../../b.java", "", true},
		{"..", "", true},
		{"", "", true},
		{"C:/temp/x.java", "", true},
	}

	for _, tt := range tests {
		got, err := sanitizeUploadPath(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("sanitizeUploadPath(%q) should fail, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeUploadPath(%q): %v", tt.input, err)
		} else if got != tt.want {
			t.Errorf("sanitizeUploadPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
