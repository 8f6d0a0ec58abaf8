package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"solaudit/internal/gemini"
	"solaudit/internal/githubimport"
	"solaudit/internal/middleware"
	"solaudit/internal/models"
	"solaudit/internal/report"
	"solaudit/internal/repository"
	"solaudit/internal/service"
	"solaudit/pkg/validator"
)

// maxUploadSize bounds uploaded contract files at 1 MiB
const maxUploadSize = 1 << 20

// AuditManager runs the audit pipeline. *service.AuditService is the
// production implementation.
type AuditManager interface {
	Create(ctx context.Context, userID uint, req service.CreateAuditRequest) (*models.AuditResult, error)
	Get(id, userID uint) (*models.AuditResult, error)
	List(userID uint) ([]*models.AuditResult, error)
	Current(userID uint) (*models.AuditResult, error)
	SetCurrent(id, userID uint) (*models.AuditResult, error)
	Delete(id, userID uint) error
}

// SourceFetcher pulls Solidity files from a repository URL
type SourceFetcher interface {
	FetchFirstSolidityFile(ctx context.Context, repoURL string) (*githubimport.SourceFile, error)
}

// ActivityLogger records user actions. *middleware.ActivityMiddleware is the
// production implementation.
type ActivityLogger interface {
	LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error
}

// AuditHandler handles audit submission, history, and report export
type AuditHandler struct {
	audits   AuditManager
	fetcher  SourceFetcher
	activity ActivityLogger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audits AuditManager, fetcher SourceFetcher, activity ActivityLogger) *AuditHandler {
	return &AuditHandler{
		audits:   audits,
		fetcher:  fetcher,
		activity: activity,
	}
}

// CreateAuditRequest represents an audit submission
type CreateAuditRequest struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required"`
	SourceType string `json:"source_type" validate:"oneof=manual file"`
}

// ImportGitHubRequest represents a GitHub import submission
type ImportGitHubRequest struct {
	RepoURL string `json:"repo_url" validate:"required"`
	Name    string `json:"name"`
}

// Create submits Solidity code for an AI audit
// @Summary Create audit
// @Description Submit Solidity code (pasted or uploaded) for an AI audit
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAuditRequest true "Contract name and code"
// @Success 201 {object} models.AuditResult "Completed audit"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "An audit is already running"
// @Failure 412 {object} map[string]string "No API key configured"
// @Failure 502 {object} map[string]string "Provider failure"
// @Router /audits [post]
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req CreateAuditRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		uploaded, err := readUploadedContract(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = *uploaded
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
			return
		}
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.audits.Create(r.Context(), userID, service.CreateAuditRequest{
		Name:       req.Name,
		Code:       req.Code,
		SourceType: models.SourceType(req.SourceType),
	})
	if err != nil {
		h.respondAuditError(w, r, userID, err)
		return
	}

	_ = h.activity.LogAction(&userID, "audit.create", "audits", "Audit created: "+result.Name, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusCreated, result)
}

// readUploadedContract extracts name and code from a multipart upload
func readUploadedContract(r *http.Request) (*CreateAuditRequest, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file field is required")
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".sol") {
		return nil, errors.New("only .sol files are accepted")
	}

	code, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, ".sol")
	}

	return &CreateAuditRequest{
		Name:       name,
		Code:       string(code),
		SourceType: string(models.SourceFile),
	}, nil
}

// ImportGitHub fetches the first Solidity file from a repository and audits it
// @Summary Import from GitHub
// @Description Fetch the first .sol file from a public GitHub repository and audit it
// @Tags Audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImportGitHubRequest true "Repository URL"
// @Success 201 {object} models.AuditResult "Completed audit"
// @Failure 400 {object} map[string]string "Invalid URL or no Solidity file"
// @Failure 502 {object} map[string]string "GitHub or provider failure"
// @Router /audits/import/github [post]
func (h *AuditHandler) ImportGitHub(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ImportGitHubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	source, err := h.fetcher.FetchFirstSolidityFile(r.Context(), req.RepoURL)
	if err != nil {
		switch {
		case errors.Is(err, githubimport.ErrInvalidRepoURL):
			respondWithError(w, http.StatusBadRequest, "Invalid repository URL")
		case errors.Is(err, githubimport.ErrNoSolidityFile):
			respondWithError(w, http.StatusBadRequest, "No Solidity file found in repository")
		default:
			slog.Error("GitHub import failed", "user_id", userID, "repo_url", req.RepoURL, "error", err)
			respondWithError(w, http.StatusBadGateway, "Failed to fetch repository contents")
		}
		return
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(source.Name, ".sol")
	}

	result, err := h.audits.Create(r.Context(), userID, service.CreateAuditRequest{
		Name:       name,
		Code:       source.Content,
		SourceType: models.SourceGitHub,
	})
	if err != nil {
		h.respondAuditError(w, r, userID, err)
		return
	}

	_ = h.activity.LogAction(&userID, "audit.import.github", "audits", "Audit imported from "+req.RepoURL, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusCreated, result)
}

// List returns the user's audit history
// @Summary List audits
// @Description List the authenticated user's audits, newest first
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuditResult "Audit history"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /audits [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	audits, err := h.audits.List(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load audits")
		return
	}

	respondWithJSON(w, http.StatusOK, audits)
}

// Get returns one audit by ID
// @Summary Get audit
// @Description Get one of the authenticated user's audits by ID
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.AuditResult "Audit"
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id} [get]
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	id, err := parseAuditID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := h.audits.Get(id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgAuditNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load audit")
		return
	}

	respondWithJSON(w, http.StatusOK, audit)
}

// Current returns the user's currently selected audit
// @Summary Get current audit
// @Description Get the authenticated user's currently selected audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AuditResult "Current audit"
// @Failure 404 {object} map[string]string "No audit selected"
// @Router /audits/current [get]
func (h *AuditHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	audit, err := h.audits.Current(userID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, "No audit selected")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load current audit")
		return
	}

	respondWithJSON(w, http.StatusOK, audit)
}

// SetCurrent selects one of the user's audits
// @Summary Select audit
// @Description Mark one of the authenticated user's audits as the current one
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} models.AuditResult "Selected audit"
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id}/current [put]
func (h *AuditHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	id, err := parseAuditID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := h.audits.SetCurrent(id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgAuditNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to select audit")
		return
	}

	respondWithJSON(w, http.StatusOK, audit)
}

// Delete removes one of the user's audits
// @Summary Delete audit
// @Description Delete one of the authenticated user's audits
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} map[string]string "Audit deleted"
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id} [delete]
func (h *AuditHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	id, err := parseAuditID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	if err := h.audits.Delete(id, userID); err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgAuditNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to delete audit")
		return
	}

	_ = h.activity.LogAction(&userID, "audit.delete", "audits", "Audit deleted", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Audit deleted",
	})
}

// Report returns the rendering breakdown of an audit
// @Summary Get audit report breakdown
// @Description Get the score label, per-category percentages, and risk-sorted issues for an audit
// @Tags Audits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {object} report.Breakdown "Report breakdown"
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id}/report [get]
func (h *AuditHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	id, err := parseAuditID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := h.audits.Get(id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgAuditNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load audit")
		return
	}

	respondWithJSON(w, http.StatusOK, report.NewBreakdown(audit))
}

// Export renders an audit as a downloadable PDF report
// @Summary Export audit report
// @Description Download one of the authenticated user's audits as a PDF report
// @Tags Audits
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Audit ID"
// @Success 200 {file} binary "PDF report"
// @Failure 404 {object} map[string]string "Audit not found"
// @Router /audits/{id}/export [get]
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	id, err := parseAuditID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAuditID)
		return
	}

	audit, err := h.audits.Get(id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAuditNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgAuditNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load audit")
		return
	}

	pdf, err := report.Generate(audit)
	if err != nil {
		slog.Error("PDF export failed", "user_id", userID, "audit_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	_ = h.activity.LogAction(&userID, "audit.export", "audits", "Report exported: "+audit.Name, getIP(r), r.UserAgent())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(audit.Name)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// respondAuditError maps pipeline errors to HTTP status codes
func (h *AuditHandler) respondAuditError(w http.ResponseWriter, r *http.Request, userID uint, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingCredential):
		respondWithError(w, http.StatusPreconditionFailed, "No Gemini API key configured. Add one in settings first.")
	case errors.Is(err, service.ErrAuditInFlight):
		respondWithError(w, http.StatusConflict, "An audit is already running. Wait for it to finish.")
	case errors.Is(err, gemini.ErrMalformedResponse):
		_ = h.activity.LogAction(&userID, "audit.create.error", "audits", "Provider returned a malformed report", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadGateway, "The AI provider returned an unusable report. Try again.")
	case errors.Is(err, service.ErrAuditFailed):
		_ = h.activity.LogAction(&userID, "audit.create.error", "audits", "Audit analysis failed", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadGateway, "Audit analysis failed. Try again later.")
	default:
		slog.Error("Audit request failed", "user_id", userID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseAuditID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
