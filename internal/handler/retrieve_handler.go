package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/pkg/response"
	"github.com/carenest/carenest/internal/service"
)

type RetrieveHandler struct {
	retrieval *service.RetrievalService
}

func NewRetrieveHandler(retrieval *service.RetrievalService) *RetrieveHandler {
	return &RetrieveHandler{retrieval: retrieval}
}

type retrieveRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type retrievedDocument struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Category model.Category `json:"category"`
	Tags     model.Tags     `json:"tags"`
	Summary  string         `json:"summary,omitempty"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Tier     model.Tier     `json:"tier"`
}

type retrieveResponse struct {
	Documents  []retrievedDocument `json:"documents"`
	Confidence *float64            `json:"confidence,omitempty"`
	Emergency  bool                `json:"emergency"`
	Skipped    bool                `json:"skipped"`
}

// Retrieve is the chat backend's entry point: it takes the visitor's message
// and returns the knowledge snippets to stuff into the prompt. It never
// returns an error status for retrieval-side trouble.
func (h *RetrieveHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, http.StatusBadRequest, "invalid", "query required")
		return
	}

	result := h.retrieval.Retrieve(c.Request.Context(), req.Query, req.Limit)

	docs := make([]retrievedDocument, 0, len(result.Documents))
	for _, item := range result.Documents {
		docs = append(docs, retrievedDocument{
			ID:       item.Document.ID,
			Title:    item.Document.Title,
			Category: item.Document.Category,
			Tags:     item.Document.Tags,
			Summary:  item.Document.Summary,
			Content:  item.Document.Content,
			Score:    item.Score,
			Tier:     item.Tier,
		})
	}
	response.Success(c, retrieveResponse{
		Documents:  docs,
		Confidence: result.Confidence,
		Emergency:  result.Emergency,
		Skipped:    result.Skipped,
	})
}
