package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"solaudit/internal/gemini"
	"solaudit/internal/models"
	"solaudit/internal/repository"
)

var (
	ErrValidation        = errors.New("invalid audit request")
	ErrMissingCredential = errors.New("no gemini api key configured")
	ErrAuditInFlight     = errors.New("an audit is already running for this user")
	ErrAuditFailed       = errors.New("audit analysis failed")
)

// CodeAnalyzer produces an audit report for Solidity source code.
// *gemini.Client is the production implementation.
type CodeAnalyzer interface {
	Analyze(ctx context.Context, apiKey, code string) (*models.AuditResult, error)
}

// AuditStorer persists audit results
type AuditStorer interface {
	Create(audit *models.AuditResult) error
	GetByID(id, userID uint) (*models.AuditResult, error)
	ListByUser(userID uint) ([]*models.AuditResult, error)
	Delete(id, userID uint) error
}

// CredentialGetter resolves a user's stored provider key
type CredentialGetter interface {
	Get(userID uint, apiName string) (*models.APIKey, error)
}

// AuditService runs the audit pipeline: validate, resolve credential, call
// the AI provider, persist, update history. One audit per user at a time.
type AuditService struct {
	analyzer CodeAnalyzer
	audits   AuditStorer
	keys     CredentialGetter
	history  *HistoryStore

	mu       sync.Mutex
	inFlight map[uint]bool
}

// NewAuditService creates a new audit service
func NewAuditService(analyzer CodeAnalyzer, audits AuditStorer, keys CredentialGetter, history *HistoryStore) *AuditService {
	return &AuditService{
		analyzer: analyzer,
		audits:   audits,
		keys:     keys,
		history:  history,
		inFlight: make(map[uint]bool),
	}
}

// CreateAuditRequest carries a new audit submission
type CreateAuditRequest struct {
	Name       string
	Code       string
	SourceType models.SourceType
}

// Create runs a full audit for the submitted code. Validation and credential
// resolution happen before any provider call; a failure at any stage leaves
// no partial audit behind.
func (s *AuditService) Create(ctx context.Context, userID uint, req CreateAuditRequest) (*models.AuditResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}
	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = models.SourceManual
	}
	if _, err := models.ParseSourceType(string(sourceType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	key, err := s.keys.Get(userID, models.ProviderGemini)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrMissingCredential
		}
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}

	if !s.acquire(userID) {
		return nil, ErrAuditInFlight
	}
	defer s.release(userID)

	result, err := s.analyzer.Analyze(ctx, key.APIKey, req.Code)
	if err != nil {
		// Malformed provider output keeps its own identity so callers can
		// distinguish "the model answered garbage" from transport failures.
		if errors.Is(err, gemini.ErrMalformedResponse) {
			return nil, err
		}
		slog.Error("Audit analysis failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuditFailed, err)
	}

	result.UserID = userID
	result.Name = name
	result.Code = req.Code
	result.SourceType = sourceType
	result.Score = models.AggregateScore(result.Categories)

	if err := s.audits.Create(result); err != nil {
		return nil, fmt.Errorf("failed to persist audit: %w", err)
	}

	s.history.Create(userID, result)
	slog.Info("Audit created", "user_id", userID, "audit_id", result.ID, "score", result.Score)
	return result, nil
}

// acquire marks the user as having an audit in flight. Returns false when
// one is already running.
func (s *AuditService) acquire(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return false
	}
	s.inFlight[userID] = true
	return true
}

func (s *AuditService) release(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}

// Get returns one of the user's audits by ID
func (s *AuditService) Get(id, userID uint) (*models.AuditResult, error) {
	return s.audits.GetByID(id, userID)
}

// List returns the user's audit history, newest first. The in-memory history
// is hydrated from storage on first access.
func (s *AuditService) List(userID uint) ([]*models.AuditResult, error) {
	if err := s.hydrate(userID); err != nil {
		return nil, err
	}
	return s.history.List(userID), nil
}

// Current returns the user's selected audit, or ErrAuditNotFound when none
// is selected.
func (s *AuditService) Current(userID uint) (*models.AuditResult, error) {
	if err := s.hydrate(userID); err != nil {
		return nil, err
	}
	current := s.history.Current(userID)
	if current == nil {
		return nil, repository.ErrAuditNotFound
	}
	return current, nil
}

// SetCurrent selects one of the user's stored audits
func (s *AuditService) SetCurrent(id, userID uint) (*models.AuditResult, error) {
	if err := s.hydrate(userID); err != nil {
		return nil, err
	}
	audit, err := s.audits.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	s.history.SetCurrent(userID, audit.ID)
	return audit, nil
}

// Delete removes an audit from storage and from the in-memory history
func (s *AuditService) Delete(id, userID uint) error {
	if err := s.audits.Delete(id, userID); err != nil {
		return err
	}
	s.history.Delete(userID, id)
	return nil
}

// hydrate loads the persisted history into the in-memory store once
func (s *AuditService) hydrate(userID uint) error {
	if s.history.Hydrated(userID) {
		return nil
	}
	audits, err := s.audits.ListByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to load audit history: %w", err)
	}
	s.history.Hydrate(userID, audits)
	return nil
}
