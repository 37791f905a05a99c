package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"docintel/internal/domain"
	"docintel/internal/usecase"
)

type handlers struct {
	state *State
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []domain.Match `json:"sources"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

type documentResponse struct {
	domain.Document
	HasEmbedding bool `json:"has_embedding"`
}

func (h *handlers) credentials(c *gin.Context) domain.Credentials {
	creds := h.state.Credentials
	if k := c.GetHeader("X-Embedding-Key"); k != "" {
		creds.Embedding = k
	}
	if k := c.GetHeader("X-Chat-Key"); k != "" {
		creds.Chat = k
	}
	return creds
}

func (h *handlers) health(c *gin.Context) {
	stats, err := h.state.Store.Stats(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": stats})
}

func (h *handlers) uploadDocuments(c *gin.Context) {
	if h.state.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.state.MaxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	dir, err := os.MkdirTemp(h.state.UploadDir, "upload-*")
	if err != nil {
		abort(c, err)
		return
	}
	defer os.RemoveAll(dir)

	files := make([]usecase.SourceFile, 0, len(uploads))
	for i, fh := range uploads {
		name := uploadName(fh.Filename, i)
		dst := filepath.Join(dir, fmt.Sprintf("%03d-%s", i, name))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			abort(c, err)
			return
		}
		files = append(files, usecase.SourceFile{Path: dst, Name: name, Origin: "upload"})
	}

	result, err := h.state.Ingest.IngestBatch(c.Request.Context(), h.credentials(c).Embedding, files, nil)
	if err != nil {
		abort(c, err)
		return
	}

	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func (h *handlers) getDocument(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.state.Store.GetDocument(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	emb, err := h.state.Store.GetEmbedding(ctx, doc.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, documentResponse{Document: doc, HasEmbedding: emb != nil})
}

func (h *handlers) deleteDocument(c *gin.Context) {
	if err := h.state.Store.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listOrphans(c *gin.Context) {
	orphans, err := h.state.Store.ListOrphans(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	if orphans == nil {
		orphans = []domain.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"orphans": orphans})
}

func (h *handlers) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.state.Retrieve.Retrieve(c.Request.Context(), h.credentials(c).Embedding, req.Query)
	if err != nil {
		abort(c, err)
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "matches": matches})
}

func (h *handlers) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.state.Answer.Answer(c.Request.Context(), h.credentials(c), req.Question)
	if err != nil {
		abort(c, err)
		return
	}
	sources := answer.Matches
	if sources == nil {
		sources = []domain.Match{}
	}
	c.JSON(http.StatusOK, askResponse{
		Question:  answer.Question,
		Answer:    answer.Text,
		Sources:   sources,
		ElapsedMS: answer.Elapsed.Milliseconds(),
	})
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotPDF):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// uploadName is the base name of a client-supplied filename, or a generated
// name when the client sent none usable.
func uploadName(filename string, i int) string {
	name := filepath.Base(filename)
	switch name {
	case ".", "..", "/", "\\":
		return fmt.Sprintf("upload-%d.pdf", i+1)
	}
	return name
}
