package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Igor555433/evia-ecosystem/middleware"
	"github.com/Igor555433/evia-ecosystem/model"
	"github.com/Igor555433/evia-ecosystem/pkg/logger"
	"github.com/Igor555433/evia-ecosystem/service"
	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	pipeline *service.Pipeline
	evidence service.EvidenceStore
	store    *service.RunStore
}

func NewRunHandler(pipeline *service.Pipeline, evidence service.EvidenceStore, store *service.RunStore) *RunHandler {
	return &RunHandler{
		pipeline: pipeline,
		evidence: evidence,
		store:    store,
	}
}

// Generate accepts an intake record plus evidence uploads, executes the
// pipeline synchronously, and returns the result bundle as an attachment.
func (h *RunHandler) Generate(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	ctx := c.Request.Context()

	intakeJSON := c.PostForm("intake_json")
	if intakeJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "intake_json field is required"})
		return
	}

	var intake map[string]any
	if err := json.Unmarshal([]byte(intakeJSON), &intake); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "intake_json is not valid JSON"})
		return
	}

	evidence := []model.Evidence{}

	// Uploaded files become file-typed evidence pointing at stored locations
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
				return
			}
			location, err := h.evidence.Put(ctx, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
			f.Close()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store evidence: " + err.Error()})
				return
			}
			evidence = append(evidence, model.Evidence{Type: "file", Value: location})
		}
	}

	// Caller-supplied notes ride along inside the intake
	if sources, ok := intake["manual_sources"].([]any); ok {
		for _, raw := range sources {
			source, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			ev := model.Evidence{Type: "note"}
			if t, ok := source["type"].(string); ok && t != "" {
				ev.Type = t
			}
			if v, ok := source["value"].(string); ok {
				ev.Value = v
			}
			evidence = append(evidence, ev)
		}
	}

	// Register the run up front so failed runs stay visible in listings
	runID := service.NewRunID()
	h.store.Save(&model.Run{
		ID:        runID,
		Tenant:    tenant,
		Status:    model.StatusRunning,
		CreatedAt: time.Now(),
	})

	result, err := h.pipeline.Execute(ctx, runID, intake, evidence)
	if err != nil {
		logger.Error(ctx, "pipeline run failed", "error", err)
		h.store.UpdateStatus(runID, model.StatusFailed, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed: " + err.Error()})
		return
	}

	status := model.StatusCompleted
	if result.GateStatus == service.GateNotReady {
		status = model.StatusNotReady
	}
	h.store.Complete(runID, status, result.GateStatus, result.BundlePath, result.Questions)

	c.FileAttachment(result.BundlePath, "evia_run_"+runID+".zip")
}

// List returns all runs for the current tenant
func (h *RunHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	runs := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(runs))
	for i, run := range runs {
		result[i] = gin.H{
			"id":          run.ID,
			"status":      run.Status,
			"gate_status": run.GateStatus,
			"created_at":  run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at":  run.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"runs": result})
}

// Get returns a single run record
func (h *RunHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// DownloadBundle re-serves a finished run's archive
func (h *RunHandler) DownloadBundle(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant || run.BundlePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.FileAttachment(run.BundlePath, "evia_run_"+run.ID+".zip")
}
