package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"solaudit/internal/gemini"
	"solaudit/internal/githubimport"
	"solaudit/internal/middleware"
	"solaudit/internal/models"
	"solaudit/internal/report"
	"solaudit/internal/repository"
	"solaudit/internal/service"
)

// stubAuditManager returns canned results per call
type stubAuditManager struct {
	createErr  error
	created    *models.AuditResult
	getResult  *models.AuditResult
	getErr     error
	lastCreate service.CreateAuditRequest
}

func (s *stubAuditManager) Create(ctx context.Context, userID uint, req service.CreateAuditRequest) (*models.AuditResult, error) {
	s.lastCreate = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	result := *s.created
	result.UserID = userID
	result.Name = req.Name
	result.Code = req.Code
	result.SourceType = req.SourceType
	return &result, nil
}

func (s *stubAuditManager) Get(id, userID uint) (*models.AuditResult, error) {
	return s.getResult, s.getErr
}

func (s *stubAuditManager) List(userID uint) ([]*models.AuditResult, error) {
	if s.getResult == nil {
		return nil, nil
	}
	return []*models.AuditResult{s.getResult}, nil
}

func (s *stubAuditManager) Current(userID uint) (*models.AuditResult, error) {
	return s.getResult, s.getErr
}

func (s *stubAuditManager) SetCurrent(id, userID uint) (*models.AuditResult, error) {
	return s.getResult, s.getErr
}

func (s *stubAuditManager) Delete(id, userID uint) error {
	return s.getErr
}

type stubFetcher struct {
	file *githubimport.SourceFile
	err  error
}

func (s *stubFetcher) FetchFirstSolidityFile(ctx context.Context, repoURL string) (*githubimport.SourceFile, error) {
	return s.file, s.err
}

type noopActivity struct{}

func (noopActivity) LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error {
	return nil
}

func completedAudit() *models.AuditResult {
	return &models.AuditResult{
		ID:      1,
		Score:   70,
		Summary: "ok",
		Categories: []models.AuditCategory{
			{Name: "Security", Score: 18, MaxScore: 25, Description: "ok", Issues: []models.AuditIssue{}},
			{Name: "Gas Optimization", Score: 10, MaxScore: 15, Description: "ok", Issues: []models.AuditIssue{}},
		},
	}
}

// newMultipartContract writes a multipart body with one .sol file field and
// returns the content type.
func newMultipartContract(t *testing.T, buf *bytes.Buffer, filename, content string) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return mw.FormDataContentType()
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	r := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, uint(1))
	return r.WithContext(ctx)
}

func TestCreateAuditEndpoint(t *testing.T) {
	manager := &stubAuditManager{created: completedAudit()}
	handler := NewAuditHandler(manager, &stubFetcher{}, noopActivity{})

	body := bytes.NewBufferString(`{"name": "My Token", "code": "contract Token {}"}`)
	r := authedRequest(http.MethodPost, "/api/v1/audits", body)
	w := httptest.NewRecorder()

	handler.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var result models.AuditResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Name != "My Token" || result.Score != 70 {
		t.Errorf("unexpected result: %+v", result)
	}
	if manager.lastCreate.SourceType != "" && manager.lastCreate.SourceType != models.SourceManual {
		t.Errorf("unexpected source type: %s", manager.lastCreate.SourceType)
	}
}

func TestCreateAuditEndpointRejectsBadBody(t *testing.T) {
	handler := NewAuditHandler(&stubAuditManager{created: completedAudit()}, &stubFetcher{}, noopActivity{})

	tests := []string{
		`not json`,
		`{"name": "", "code": "contract A {}"}`,
		`{"name": "A", "code": ""}`,
		`{"name": "A", "code": "contract A {}", "source_type": "github"}`,
	}

	for _, body := range tests {
		r := authedRequest(http.MethodPost, "/api/v1/audits", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.Create(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCreateAuditEndpointRequiresAuth(t *testing.T) {
	handler := NewAuditHandler(&stubAuditManager{created: completedAudit()}, &stubFetcher{}, noopActivity{})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/audits", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	handler.Create(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreateAuditEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"missing credential", service.ErrMissingCredential, http.StatusPreconditionFailed},
		{"in flight", service.ErrAuditInFlight, http.StatusConflict},
		{"malformed response", fmt.Errorf("%w: no summary", gemini.ErrMalformedResponse), http.StatusBadGateway},
		{"provider failure", fmt.Errorf("%w: status 503", service.ErrAuditFailed), http.StatusBadGateway},
		{"validation", fmt.Errorf("%w: name is required", service.ErrValidation), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuditHandler(&stubAuditManager{createErr: tt.err}, &stubFetcher{}, noopActivity{})

			body := bytes.NewBufferString(`{"name": "A", "code": "contract A {}"}`)
			r := authedRequest(http.MethodPost, "/api/v1/audits", body)
			w := httptest.NewRecorder()

			handler.Create(w, r)

			if w.Code != tt.expected {
				t.Errorf("expected %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateAuditEndpointFileUpload(t *testing.T) {
	manager := &stubAuditManager{created: completedAudit()}
	handler := NewAuditHandler(manager, &stubFetcher{}, noopActivity{})

	var buf bytes.Buffer
	mw := newMultipartContract(t, &buf, "Vault.sol", "pragma solidity ^0.8.0;\ncontract Vault {}")

	r := authedRequest(http.MethodPost, "/api/v1/audits", &buf)
	r.Header.Set("Content-Type", mw)
	w := httptest.NewRecorder()

	handler.Create(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if manager.lastCreate.Name != "Vault" {
		t.Errorf("expected name derived from filename, got %q", manager.lastCreate.Name)
	}
	if manager.lastCreate.SourceType != models.SourceFile {
		t.Errorf("expected file source type, got %s", manager.lastCreate.SourceType)
	}
}

func TestImportGitHubEndpoint(t *testing.T) {
	manager := &stubAuditManager{created: completedAudit()}
	fetcher := &stubFetcher{file: &githubimport.SourceFile{
		Name:    "Vault.sol",
		Content: "contract Vault {}",
	}}
	handler := NewAuditHandler(manager, fetcher, noopActivity{})

	body := bytes.NewBufferString(`{"repo_url": "https://github.com/alice/vault"}`)
	r := authedRequest(http.MethodPost, "/api/v1/audits/import/github", body)
	w := httptest.NewRecorder()

	handler.ImportGitHub(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if manager.lastCreate.Name != "Vault" {
		t.Errorf("expected name from solidity file, got %q", manager.lastCreate.Name)
	}
	if manager.lastCreate.SourceType != models.SourceGitHub {
		t.Errorf("expected github source type, got %s", manager.lastCreate.SourceType)
	}
}

func TestImportGitHubEndpointNoSolidityFile(t *testing.T) {
	fetcher := &stubFetcher{err: githubimport.ErrNoSolidityFile}
	handler := NewAuditHandler(&stubAuditManager{created: completedAudit()}, fetcher, noopActivity{})

	body := bytes.NewBufferString(`{"repo_url": "https://github.com/alice/docs"}`)
	r := authedRequest(http.MethodPost, "/api/v1/audits/import/github", body)
	w := httptest.NewRecorder()

	handler.ImportGitHub(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetAuditEndpointNotFound(t *testing.T) {
	handler := NewAuditHandler(&stubAuditManager{getErr: repository.ErrAuditNotFound}, &stubFetcher{}, noopActivity{})

	r := authedRequest(http.MethodGet, "/api/v1/audits/42", nil)
	r.SetPathValue("id", "42")
	w := httptest.NewRecorder()

	handler.Get(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	handler := NewAuditHandler(&stubAuditManager{getResult: completedAudit()}, &stubFetcher{}, noopActivity{})

	r := authedRequest(http.MethodGet, "/api/v1/audits/1/report", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	handler.Report(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var breakdown report.Breakdown
	if err := json.NewDecoder(w.Body).Decode(&breakdown); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if breakdown.Score != 70 || breakdown.Label != "Average" {
		t.Errorf("unexpected breakdown: score=%d label=%s", breakdown.Score, breakdown.Label)
	}
	if len(breakdown.Categories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(breakdown.Categories))
	}
}

func TestExportEndpoint(t *testing.T) {
	audit := completedAudit()
	audit.Name = "My Token"
	audit.Code = "contract Token {}"
	handler := NewAuditHandler(&stubAuditManager{getResult: audit}, &stubFetcher{}, noopActivity{})

	r := authedRequest(http.MethodGet, "/api/v1/audits/1/export", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	handler.Export(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "My_Token_audit_report.pdf") {
		t.Errorf("unexpected content disposition: %s", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Error("response body is not a PDF document")
	}
}

func TestDeleteAuditEndpointInvalidID(t *testing.T) {
	handler := NewAuditHandler(&stubAuditManager{}, &stubFetcher{}, noopActivity{})

	r := authedRequest(http.MethodDelete, "/api/v1/audits/abc", nil)
	r.SetPathValue("id", "abc")
	w := httptest.NewRecorder()

	handler.Delete(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
