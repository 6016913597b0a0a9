package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carenest/carenest/internal/filestore"
	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
	"github.com/carenest/carenest/internal/pkg/response"
	"github.com/carenest/carenest/internal/service"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	ingest    *service.IngestService
	documents *service.DocumentService
	store     filestore.Store
}

func NewDocumentHandler(ingest *service.IngestService, documents *service.DocumentService, store filestore.Store) *DocumentHandler {
	return &DocumentHandler{
		ingest:    ingest,
		documents: documents,
		store:     store,
	}
}

type ingestResponse struct {
	Document   *model.Document `json:"document"`
	Method     string          `json:"extraction_method"`
	Confidence float64         `json:"extraction_confidence"`
	PageCount  int             `json:"page_count"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// Ingest accepts a multipart PDF upload with optional metadata fields and
// runs it through the extraction pipeline synchronously. A failed extraction
// still returns 200: the document record exists and the response tells the
// operator what happened.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds upload limit")
		return
	}
	if !strings.EqualFold(strings.TrimPrefix(strings.ToLower(filepathExt(file.Filename)), "."), "pdf") {
		response.Error(c, http.StatusBadRequest, "invalid_file", "only pdf files are accepted")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_file", "failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds upload limit")
		return
	}

	category := model.ParseCategory(c.PostForm("category"))
	tags := model.NewTags(strings.Split(c.PostForm("tags"), ",")...)
	sourceAuthority := c.PostForm("source_authority") == "true"

	doc, result, err := h.ingest.IngestPDF(c.Request.Context(), data, file.Filename, category, tags, sourceAuthority)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ingestResponse{
		Document:   doc,
		Method:     string(result.Method),
		Confidence: result.Confidence,
		PageCount:  result.PageCount,
		Warnings:   result.Errors,
	})
}

type noteRequest struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	SourceAuthority bool     `json:"source_authority"`
}

func (h *DocumentHandler) CreateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	doc, err := h.ingest.IngestNote(c.Request.Context(),
		req.Title, req.Content,
		model.ParseCategory(req.Category),
		model.NewTags(req.Tags...),
		req.SourceAuthority,
	)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := uint(50)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	offset := uint(0)
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			offset = uint(parsed)
		}
	}
	docs, total, err := h.documents.List(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs, "total": total})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type updateRequest struct {
	Title           *string   `json:"title"`
	Summary         *string   `json:"summary"`
	Category        *string   `json:"category"`
	Tags            *[]string `json:"tags"`
	SourceAuthority *bool     `json:"source_authority"`
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	update := service.DocumentUpdate{
		Title:           req.Title,
		Summary:         req.Summary,
		SourceAuthority: req.SourceAuthority,
	}
	if req.Category != nil {
		category := model.ParseCategory(*req.Category)
		update.Category = &category
	}
	if req.Tags != nil {
		tags := model.NewTags(*req.Tags...)
		update.Tags = &tags
	}
	doc, err := h.documents.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *DocumentHandler) SetActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if err := h.documents.SetActive(c.Request.Context(), c.Param("id"), req.Active); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// DownloadFile streams the original upload back to the operator.
func (h *DocumentHandler) DownloadFile(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if doc.FileKey == "" {
		handleError(c, appErr.ErrNotFound)
		return
	}
	reader, err := h.store.Open(c.Request.Context(), doc.FileKey)
	if err != nil {
		handleError(c, err)
		return
	}
	defer reader.Close()
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileKey+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func filepathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
