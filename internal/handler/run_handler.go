package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/repository"
	"github.com/jengzang/greenarea-go/internal/service"
	"github.com/jengzang/greenarea-go/pkg/response"
)

// RunHandler handles HTTP requests for estimation runs
type RunHandler struct {
	service *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

func (h *RunHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, pipeline.ErrInvalidPlan):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNoRecords):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

// CreateRun submits a new run
// POST /api/v1/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	// Get user from context (set by auth middleware)
	createdBy := c.GetString("user")

	run, err := h.service.CreateRun(req, createdBy)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Accepted(c, run)
}

// GetRun retrieves a run by ID
// GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, run)
}

// ListRuns retrieves runs, newest first
// GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	status := c.Query("status")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	runs, err := h.service.ListRuns(status, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

// ListTasks retrieves the (sensor, year) tasks of a run
// GET /api/v1/runs/:id/tasks
func (h *RunHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.ListTasks(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, tasks)
}

func recordFilter(c *gin.Context) (repository.RecordFilter, error) {
	filter := repository.RecordFilter{Sensor: c.Query("sensor")}
	if v := c.Query("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid threshold %q", v)
		}
		filter.Threshold = &th
	}
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid year %q", v)
		}
		filter.Year = year
	}
	return filter, nil
}

// ListRecords retrieves the area rows of a run as JSON or CSV
// GET /api/v1/runs/:id/records?sensor=&threshold=&year=&format=csv&extended=true
func (h *RunHandler) ListRecords(c *gin.Context) {
	id := c.Param("id")
	filter, err := recordFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		extended := c.Query("extended") == "true"
		if err := h.service.WriteRecordsCSV(&buf, id, filter, extended); err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}

	records, err := h.service.Records(id, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, records)
}

// GetChart renders the area rows of a run as an HTML bar chart
// GET /api/v1/runs/:id/chart?sensor=&threshold=
func (h *RunHandler) GetChart(c *gin.Context) {
	filter, err := recordFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteChart(&buf, c.Param("id"), filter); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
