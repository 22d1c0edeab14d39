package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tmarland/kindred/pkg/analyzer/similarity"
	"github.com/tmarland/kindred/pkg/config"
	"github.com/tmarland/kindred/pkg/source"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handler holds dependencies for the compare API.
type Handler struct {
	cfg      *config.Config
	analyzer *similarity.Analyzer
}

// NewHandler creates a new handler around a configured analyzer.
func NewHandler(cfg *config.Config, analyzer *similarity.Analyzer) *Handler {
	return &Handler{cfg: cfg, analyzer: analyzer}
}

// NewRouter builds the Gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/healthz", h.Health)
	router.POST("/api/compare", h.Compare)
	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Compare accepts a multipart form with files under the repoA and repoB
// fields and responds with the full analysis document. Uploads never
// touch the filesystem; contents are compared in memory.
func (h *Handler) Compare(c *gin.Context) {
	if max := h.cfg.Server.MaxUploadBytes; max > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid multipart form: %v", err),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	defer form.RemoveAll()

	colA, err := collectionFromUpload("repoA", form.File["repoA"])
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_UPLOAD"})
		return
	}
	colB, err := collectionFromUpload("repoB", form.File["repoB"])
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_UPLOAD"})
		return
	}

	if len(colA.Files) == 0 && len(colB.Files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "no files uploaded under repoA or repoB",
			Code:  "EMPTY_UPLOAD",
		})
		return
	}

	result, err := h.analyzer.AnalyzeRepos(colA, colB)
	if err != nil {
		log.Error().Err(err).Msg("comparison failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "comparison failed",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	log.Info().
		Int("files_a", result.Summary.FilesA).
		Int("files_b", result.Summary.FilesB).
		Float64("overall", result.Overall).
		Msg("comparison served")

	c.JSON(http.StatusOK, result)
}

// collectionFromUpload reads all parts of one side into an in-memory
// source. Filenames are kept as relative slash paths so the response
// matches CLI output for the same tree.
func collectionFromUpload(name string, parts []*multipart.FileHeader) (similarity.Collection, error) {
	files := make(source.MapSource, len(parts))

	for _, part := range parts {
		rel, err := sanitizeUploadPath(part.Filename)
		if err != nil {
			return similarity.Collection{}, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := files[rel]; dup {
			return similarity.Collection{}, fmt.Errorf("%s: duplicate file %q", name, rel)
		}

		f, err := part.Open()
		if err != nil {
			return similarity.Collection{}, fmt.Errorf("%s: open %q: %w", name, rel, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return similarity.Collection{}, fmt.Errorf("%s: read %q: %w", name, rel, err)
		}
		files[rel] = data
	}

	return similarity.Collection{Name: name, Files: files.Paths(), Source: files}, nil
}

// sanitizeUploadPath normalizes a client-supplied filename and rejects
// anything that would escape a relative tree.
func sanitizeUploadPath(filename string) (string, error) {
	rel := strings.ReplaceAll(filename, "\\", "/")
	rel = path.Clean(rel)

	if rel == "" || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "../") ||
		strings.Contains(rel, ":") {
		return "", fmt.Errorf("unsafe filename %q", filename)
	}
	return rel, nil
}
