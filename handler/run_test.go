package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Igor555433/evia-ecosystem/config"
	"github.com/Igor555433/evia-ecosystem/model"
	"github.com/Igor555433/evia-ecosystem/service"
	"github.com/gin-gonic/gin"
)

func newRunTestHandler(t *testing.T) (*RunHandler, *service.RunStore) {
	t.Helper()

	settings := service.NewSettings(&config.PipelineConfig{Mode: "dry"})
	promptsDir := t.TempDir()
	for stage, file := range settings.PromptFiles {
		content := "Инструкция для stage " + stage + "\n"
		if err := os.WriteFile(filepath.Join(promptsDir, file), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write prompt: %v", err)
		}
	}

	runsDir := t.TempDir()
	pipeline := service.NewPipeline(settings,
		service.NewPromptStore(promptsDir, settings.PromptFiles),
		service.NewDocumentRenderer(true), runsDir)
	evidence := service.NewLocalEvidenceStore(filepath.Join(runsDir, "_uploads"))
	store := service.NewRunStore(100)
	return NewRunHandler(pipeline, evidence, store), store
}

// asTenant injects the identity the auth middleware would normally set.
func asTenant(tenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("username", "tester")
		c.Set("tenant", tenant)
		c.Next()
	}
}

func newRunTestRouter(t *testing.T) (*gin.Engine, *service.RunStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, store := newRunTestHandler(t)
	router := gin.New()
	api := router.Group("/api", asTenant("acme"))
	api.POST("/runs", h.Generate)
	api.GET("/runs", h.List)
	api.GET("/runs/:id", h.Get)
	api.GET("/runs/:id/bundle", h.DownloadBundle)
	return router, store
}

func multipartIntake(t *testing.T, intake map[string]any, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	intakeJSON, err := json.Marshal(intake)
	if err != nil {
		t.Fatalf("Failed to marshal intake: %v", err)
	}
	if err := mw.WriteField("intake_json", string(intakeJSON)); err != nil {
		t.Fatalf("Failed to write field: %v", err)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func testIntake() map[string]any {
	return map[string]any{
		"project_name":      "EVIA Pilot",
		"company_name":      "ACME",
		"goals":             "Сделать MVP",
		"problem_statement": "Нет автоматизации",
	}
}

func TestGenerateReturnsBundle(t *testing.T) {
	router, store := newRunTestRouter(t)

	body, contentType := multipartIntake(t, testIntake(), map[string]string{
		"report.txt": "данные интервью",
	})
	req := httptest.NewRequest("POST", "/api/runs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !bytes.Contains([]byte(cd), []byte("evia_run_")) {
		t.Errorf("Expected attachment disposition, got %q", cd)
	}

	// The response body is a readable archive with all stage artifacts
	r, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("Response is not a zip archive: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	for _, want := range []string{"S0.md", "S6.json", "final.md"} {
		if !names[want] {
			t.Errorf("Expected %s in bundle, got %v", want, names)
		}
	}

	// The run was recorded for the tenant
	runs := store.GetByTenant("acme")
	if len(runs) != 1 {
		t.Fatalf("Expected 1 stored run, got %d", len(runs))
	}
	if runs[0].Status != model.StatusCompleted {
		t.Errorf("Expected status %s, got %s", model.StatusCompleted, runs[0].Status)
	}
}

func TestGenerateNotReadyIntake(t *testing.T) {
	router, store := newRunTestRouter(t)

	body, contentType := multipartIntake(t, map[string]any{
		"project_name": "EVIA Pilot",
	}, nil)
	req := httptest.NewRequest("POST", "/api/runs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	runs := store.GetByTenant("acme")
	if len(runs) != 1 {
		t.Fatalf("Expected 1 stored run, got %d", len(runs))
	}
	if runs[0].Status != model.StatusNotReady {
		t.Errorf("Expected status %s, got %s", model.StatusNotReady, runs[0].Status)
	}
	if len(runs[0].Questions) != 3 {
		t.Errorf("Expected 3 clarification questions, got %v", runs[0].Questions)
	}
}

func TestGenerateFailureRecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// A pipeline whose prompt files are absent fails on the first stage
	settings := service.NewSettings(&config.PipelineConfig{Mode: "dry"})
	runsDir := t.TempDir()
	pipeline := service.NewPipeline(settings,
		service.NewPromptStore(t.TempDir(), settings.PromptFiles),
		service.NewDocumentRenderer(true), runsDir)
	store := service.NewRunStore(100)
	h := NewRunHandler(pipeline, service.NewLocalEvidenceStore(filepath.Join(runsDir, "_uploads")), store)

	router := gin.New()
	router.POST("/api/runs", asTenant("acme"), h.Generate)

	body, contentType := multipartIntake(t, testIntake(), nil)
	req := httptest.NewRequest("POST", "/api/runs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}

	// The run stays visible with its failure recorded
	runs := store.GetByTenant("acme")
	if len(runs) != 1 {
		t.Fatalf("Expected 1 stored run, got %d", len(runs))
	}
	if runs[0].Status != model.StatusFailed {
		t.Errorf("Expected status %s, got %s", model.StatusFailed, runs[0].Status)
	}
	if runs[0].ErrorMsg == "" {
		t.Error("Expected the failure reason to be recorded")
	}
}

func TestGenerateMissingIntake(t *testing.T) {
	router, _ := newRunTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	req := httptest.NewRequest("POST", "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGenerateInvalidIntakeJSON(t *testing.T) {
	router, _ := newRunTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("intake_json", "{not json")
	mw.Close()
	req := httptest.NewRequest("POST", "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	router, store := newRunTestRouter(t)

	store.Save(&model.Run{ID: "r1", Tenant: "acme", Status: model.StatusCompleted, CreatedAt: time.Now()})
	store.Save(&model.Run{ID: "r2", Tenant: "globex", Status: model.StatusCompleted, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Runs []map[string]any `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Fatalf("Expected 1 run for tenant, got %d", len(resp.Runs))
	}
	if resp.Runs[0]["id"] != "r1" {
		t.Errorf("Expected run r1, got %v", resp.Runs[0]["id"])
	}
}

func TestGetRun(t *testing.T) {
	router, store := newRunTestRouter(t)

	store.Save(&model.Run{ID: "r1", Tenant: "acme", Status: model.StatusCompleted, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/api/runs/r1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var run model.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if run.ID != "r1" {
		t.Errorf("Expected run r1, got %s", run.ID)
	}
}

func TestGetRunWrongTenant(t *testing.T) {
	router, store := newRunTestRouter(t)

	store.Save(&model.Run{ID: "r1", Tenant: "globex", Status: model.StatusCompleted, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/api/runs/r1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDownloadBundle(t *testing.T) {
	router, store := newRunTestRouter(t)

	// Stash a real archive on disk for the stored run to point at
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "r1.zip")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create("S0.md")
	fw.Write([]byte("# S0\n"))
	zw.Close()
	if err := os.WriteFile(bundlePath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write bundle: %v", err)
	}
	store.Save(&model.Run{ID: "r1", Tenant: "acme", Status: model.StatusCompleted,
		BundlePath: bundlePath, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/api/runs/r1/bundle", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), buf.Bytes()) {
		t.Error("Expected archive bytes to round-trip")
	}
}

func TestDownloadBundleUnknownRun(t *testing.T) {
	router, _ := newRunTestRouter(t)

	req := httptest.NewRequest("GET", "/api/runs/missing/bundle", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
