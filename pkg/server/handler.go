package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mikeboe/devtools-research/pkg/vectorstore"
)

// JobService is implemented by *Service.
type JobService interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error)
}

// KnowledgeSearcher is implemented by *KnowledgeBase.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int, f vectorstore.Filter) ([]vectorstore.ScoredChunk, error)
	ByCompany(ctx context.Context, name string) ([]vectorstore.PageChunk, error)
}

type Handler struct {
	Jobs JobService
	// Knowledge is nil when indexing is disabled; its routes then answer 503.
	Knowledge KnowledgeSearcher
}

func NewHandler(jobs JobService, knowledge KnowledgeSearcher) *Handler {
	return &Handler{Jobs: jobs, Knowledge: knowledge}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/research", h.createJob)
		api.GET("/research", h.listJobs)
		api.GET("/research/:id", h.getJob)
		api.GET("/research/:id/logs", h.getJobLogs)

		api.GET("/knowledge/search", h.searchKnowledge)
		api.GET("/knowledge/companies/:name", h.companyPages)
	}
}

type PageHit struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Company string  `json:"company"`
	Score   float64 `json:"score,omitempty"`
}

func (h *Handler) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Jobs.CreateJob(c.Request.Context(), req)
	if errors.Is(err, ErrEmptyQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Return empty list instead of null
	if jobs == nil {
		jobs = []Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) getJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	job, err := h.Jobs.GetJob(c.Request.Context(), id)
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *Handler) getJobLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	logs, err := h.Jobs.GetJobLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) searchKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is disabled"})
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}

	topK := 5
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be between 1 and 50"})
			return
		}
		topK = n
	}

	filter := vectorstore.Filter{
		Company: c.Query("company"),
		Source:  c.Query("source"),
		JobID:   c.Query("job_id"),
	}
	results, err := h.Knowledge.Search(c.Request.Context(), q, topK, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hits := make([]PageHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, PageHit{
			Content: r.Chunk.Content,
			Source:  r.Chunk.Source(),
			Company: r.Chunk.Company(),
			Score:   r.Score,
		})
	}
	c.JSON(http.StatusOK, hits)
}

func (h *Handler) companyPages(c *gin.Context) {
	if h.Knowledge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is disabled"})
		return
	}

	chunks, err := h.Knowledge.ByCompany(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hits := make([]PageHit, 0, len(chunks))
	for _, chunk := range chunks {
		hits = append(hits, PageHit{
			Content: chunk.Content,
			Source:  chunk.Source(),
			Company: chunk.Company(),
		})
	}
	c.JSON(http.StatusOK, hits)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return id, true
}
