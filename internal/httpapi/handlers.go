package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/client"
	"github.com/ryabkov82/biometric-sender/internal/ingest"
	"github.com/ryabkov82/biometric-sender/internal/job"
	"github.com/ryabkov82/biometric-sender/internal/report"
	"github.com/ryabkov82/biometric-sender/internal/version"
)

// Handler handles HTTP requests
type Handler struct {
	store          *job.Store
	allowedBaseDir string
	defaultAPIURL  string
	logger         *zap.Logger
}

// NewHandler creates a new handler. csvPath values in requests must resolve
// inside allowedBaseDir. defaultAPIURL is used when a request has no apiUrl.
func NewHandler(store *job.Store, allowedBaseDir, defaultAPIURL string, logger *zap.Logger) (*Handler, error) {
	absDir, err := filepath.Abs(allowedBaseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed base dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		store:          store,
		allowedBaseDir: absDir,
		defaultAPIURL:  defaultAPIURL,
		logger:         logger,
	}, nil
}

type createRunRequest struct {
	CSVPath   string            `json:"csvPath"`
	APIURL    string            `json:"apiUrl"`
	Headers   map[string]string `json:"headers"`
	AuthToken string            `json:"authToken"`
}

// CreateRun handles POST /runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if req.CSVPath == "" {
		http.Error(w, "csvPath is required", http.StatusBadRequest)
		return
	}
	if req.APIURL == "" {
		req.APIURL = h.defaultAPIURL
	}
	if req.APIURL == "" {
		http.Error(w, "apiUrl is required", http.StatusBadRequest)
		return
	}
	if _, err := client.NewSender(client.Options{BaseURL: req.APIURL}, nil, nil); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	csvPath, err := ingest.ValidatePath(req.CSVPath, h.allowedBaseDir)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid csvPath: %v", err), http.StatusBadRequest)
		return
	}
	if err := ingest.ValidatePathExists(csvPath); err != nil {
		http.Error(w, fmt.Sprintf("Invalid csvPath: %v", err), http.StatusBadRequest)
		return
	}

	run := &job.Run{
		CSVPath:   csvPath,
		APIURL:    req.APIURL,
		Headers:   req.Headers,
		AuthToken: req.AuthToken,
	}

	runID, err := h.store.Create(run)
	if err != nil {
		if errors.Is(err, job.ErrRunActive) {
			msg := "Another run is in progress, please try again later"
			if active := h.store.Active(); active != "" {
				msg = fmt.Sprintf("Run %s is in progress, please try again later", active)
			}
			http.Error(w, msg, http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to create run: %v", err), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Run created",
		zap.String("run", runID),
		zap.String("csv", csvPath),
		zap.String("api_url", req.APIURL))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"runId":  runID,
		"status": job.StatusQueued,
	})
}

// GetRun handles GET /runs/{runId}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, ok := h.lookup(w, strings.TrimPrefix(r.URL.Path, "/runs/"))
	if !ok {
		return
	}

	response := map[string]interface{}{
		"runId":        run.ID,
		"status":       run.Status,
		"csvPath":      run.CSVPath,
		"apiUrl":       run.APIURL,
		"totalCsvRows": run.TotalCSVRows,
		"driversTotal": run.DriversTotal,
		"driversDone":  run.DriversDone,
		"success":      run.Success,
		"failed":       run.Failed,
		"skipped":      run.Skipped,
		"createdAt":    run.CreatedAt.Format(time.RFC3339),
	}
	if run.LastDriver != "" {
		response["lastDriver"] = run.LastDriver
	}
	if run.StartedAt != nil {
		response["startedAt"] = run.StartedAt.Format(time.RFC3339)
	}
	if run.FinishedAt != nil {
		response["finishedAt"] = run.FinishedAt.Format(time.RFC3339)
	}
	if run.LastError != "" {
		response["lastError"] = run.LastError
	}

	writeJSON(w, http.StatusOK, response)
}

// GetReport handles GET /runs/{runId}/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/runs/"), "/report")
	rep, ok := h.finishedReport(w, id)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, rep); err != nil {
		h.logger.Error("Failed to write report", zap.String("run", id), zap.Error(err))
	}
}

// GetReportHTML handles GET /runs/{runId}/report.html
func (h *Handler) GetReportHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/runs/"), "/report.html")
	rep, ok := h.finishedReport(w, id)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHTML(w, rep, time.Now()); err != nil {
		h.logger.Error("Failed to render report", zap.String("run", id), zap.Error(err))
	}
}

// GetVersion handles GET /version
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, version.Info())
}

func (h *Handler) lookup(w http.ResponseWriter, id string) (job.Run, bool) {
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "runId is required", http.StatusBadRequest)
		return job.Run{}, false
	}
	run, err := h.store.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return job.Run{}, false
	}
	return run, true
}

func (h *Handler) finishedReport(w http.ResponseWriter, id string) (report.RunReport, bool) {
	run, ok := h.lookup(w, id)
	if !ok {
		return report.RunReport{}, false
	}
	if !run.Status.Finished() {
		http.Error(w, fmt.Sprintf("Run is %s, report not ready", run.Status), http.StatusConflict)
		return report.RunReport{}, false
	}
	if run.Report == nil {
		http.Error(w, fmt.Sprintf("No report available: %s", run.LastError), http.StatusNotFound)
		return report.RunReport{}, false
	}
	return *run.Report, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
