package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"solaudit/internal/gemini"
	"solaudit/internal/models"
	"solaudit/internal/repository"
)

// fakeAnalyzer returns a canned result or error and counts invocations
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	result  *models.AuditResult
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, apiKey, code string) (*models.AuditResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	// copy so callers can mutate freely
	r := *f.result
	return &r, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAuditStore keeps audits in a slice and assigns IDs on create
type fakeAuditStore struct {
	mu     sync.Mutex
	nextID uint
	audits []*models.AuditResult
	failOn error
}

func (f *fakeAuditStore) Create(audit *models.AuditResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return f.failOn
	}
	f.nextID++
	audit.ID = f.nextID
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeAuditStore) GetByID(id, userID uint) (*models.AuditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.audits {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, repository.ErrAuditNotFound
}

func (f *fakeAuditStore) ListByUser(userID uint) ([]*models.AuditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditResult
	for i := len(f.audits) - 1; i >= 0; i-- {
		if f.audits[i].UserID == userID {
			out = append(out, f.audits[i])
		}
	}
	return out, nil
}

func (f *fakeAuditStore) Delete(id, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.audits {
		if a.ID == id && a.UserID == userID {
			f.audits = append(f.audits[:i], f.audits[i+1:]...)
			return nil
		}
	}
	return repository.ErrAuditNotFound
}

func (f *fakeAuditStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audits)
}

// fakeKeyStore holds one key per user
type fakeKeyStore struct {
	keys map[uint]string
}

func (f *fakeKeyStore) Get(userID uint, apiName string) (*models.APIKey, error) {
	key, ok := f.keys[userID]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return &models.APIKey{UserID: userID, APIName: apiName, APIKey: key}, nil
}

func analyzedResult() *models.AuditResult {
	return &models.AuditResult{
		Score:   99, // deliberately wrong, the service recomputes it
		Summary: "Looks mostly fine.",
		Categories: []models.AuditCategory{
			{Name: "Security", Score: 18, MaxScore: 25, Description: "ok", Issues: []models.AuditIssue{}},
			{Name: "Gas Optimization", Score: 10, MaxScore: 15, Description: "ok", Issues: []models.AuditIssue{}},
		},
	}
}

func newTestService(analyzer *fakeAnalyzer, store *fakeAuditStore, keys *fakeKeyStore) *AuditService {
	if keys == nil {
		keys = &fakeKeyStore{keys: map[uint]string{1: "test-key"}}
	}
	return NewAuditService(analyzer, store, keys, NewHistoryStore())
}

func TestCreateAudit(t *testing.T) {
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	store := &fakeAuditStore{}
	svc := newTestService(analyzer, store, nil)

	result, err := svc.Create(context.Background(), 1, CreateAuditRequest{
		Name: "My Token",
		Code: "contract Token {}",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if result.ID == 0 {
		t.Error("expected persisted audit to have an ID")
	}
	if result.UserID != 1 || result.Name != "My Token" {
		t.Errorf("identity fields not filled: %+v", result)
	}
	if result.SourceType != models.SourceManual {
		t.Errorf("expected default source type manual, got %s", result.SourceType)
	}
	if result.Score != 70 {
		t.Errorf("expected score recomputed to 70, got %d", result.Score)
	}

	current, err := svc.Current(1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != result.ID {
		t.Errorf("expected new audit to be current")
	}
}

func TestCreateAuditRejectsEmptyFields(t *testing.T) {
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	svc := newTestService(analyzer, &fakeAuditStore{}, nil)

	tests := []CreateAuditRequest{
		{Name: "", Code: "contract A {}"},
		{Name: "   ", Code: "contract A {}"},
		{Name: "A", Code: ""},
		{Name: "A", Code: "contract A {}", SourceType: "carrier-pigeon"},
	}

	for _, req := range tests {
		if _, err := svc.Create(context.Background(), 1, req); !errors.Is(err, ErrValidation) {
			t.Errorf("request %+v: expected ErrValidation, got %v", req, err)
		}
	}
	if analyzer.callCount() != 0 {
		t.Errorf("analyzer must not be called for invalid requests, got %d calls", analyzer.callCount())
	}
}

func TestCreateAuditMissingCredential(t *testing.T) {
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	svc := newTestService(analyzer, &fakeAuditStore{}, &fakeKeyStore{keys: map[uint]string{}})

	_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "A", Code: "contract A {}"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Error("analyzer must not be called without a credential")
	}
}

func TestCreateAuditMalformedResponsePersistsNothing(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: missing summary", gemini.ErrMalformedResponse)}
	store := &fakeAuditStore{}
	svc := newTestService(analyzer, store, nil)

	_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "A", Code: "contract A {}"})
	if !errors.Is(err, gemini.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse to pass through, got %v", err)
	}
	if store.count() != 0 {
		t.Error("malformed response must not persist an audit")
	}

	list, err := svc.List(1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty history, got %d entries", len(list))
	}
}

func TestCreateAuditProviderFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: status 503", gemini.ErrProvider)}
	store := &fakeAuditStore{}
	svc := newTestService(analyzer, store, nil)

	_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "A", Code: "contract A {}"})
	if !errors.Is(err, ErrAuditFailed) {
		t.Errorf("expected ErrAuditFailed, got %v", err)
	}
	if store.count() != 0 {
		t.Error("failed analysis must not persist an audit")
	}
}

func TestCreateAuditBlocksConcurrentSubmission(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result:  analyzedResult(),
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	svc := newTestService(analyzer, &fakeAuditStore{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "slow", Code: "contract A {}"})
		done <- err
	}()
	<-analyzer.started

	// second submission while the first is still analyzing
	_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "fast", Code: "contract B {}"})
	if !errors.Is(err, ErrAuditInFlight) {
		t.Errorf("expected ErrAuditInFlight, got %v", err)
	}

	close(analyzer.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	// after completion the guard is released
	if _, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "next", Code: "contract C {}"}); err != nil {
		t.Errorf("expected submission to succeed after release, got %v", err)
	}
}

func TestCreateAuditInFlightIsPerUser(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result:  analyzedResult(),
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	keys := &fakeKeyStore{keys: map[uint]string{1: "k1", 2: "k2"}}
	svc := newTestService(analyzer, &fakeAuditStore{}, keys)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "slow", Code: "contract A {}"})
		done <- err
	}()
	<-analyzer.started

	go func() { <-analyzer.started }()
	close(analyzer.block)

	if _, err := svc.Create(context.Background(), 2, CreateAuditRequest{Name: "other", Code: "contract B {}"}); err != nil {
		t.Errorf("another user's submission must not be blocked, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
}

func TestDeleteClearsCurrent(t *testing.T) {
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	svc := newTestService(analyzer, &fakeAuditStore{}, nil)

	result, err := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "A", Code: "contract A {}"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(result.ID, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Current(1); !errors.Is(err, repository.ErrAuditNotFound) {
		t.Errorf("expected ErrAuditNotFound after deleting current audit, got %v", err)
	}
	if _, err := svc.Get(result.ID, 1); !errors.Is(err, repository.ErrAuditNotFound) {
		t.Errorf("expected audit gone from storage, got %v", err)
	}
}

func TestListHydratesFromStorage(t *testing.T) {
	store := &fakeAuditStore{}
	seeded := &models.AuditResult{UserID: 1, Name: "persisted", Categories: []models.AuditCategory{}}
	if err := store.Create(seeded); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	svc := newTestService(&fakeAnalyzer{result: analyzedResult()}, store, nil)

	list, err := svc.List(1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "persisted" {
		t.Errorf("expected hydrated history with seeded audit, got %+v", list)
	}
}

func TestSetCurrent(t *testing.T) {
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	svc := newTestService(analyzer, &fakeAuditStore{}, nil)

	first, _ := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "first", Code: "contract A {}"})
	second, _ := svc.Create(context.Background(), 1, CreateAuditRequest{Name: "second", Code: "contract B {}"})

	current, _ := svc.Current(1)
	if current.ID != second.ID {
		t.Fatalf("expected newest audit current, got %d", current.ID)
	}

	if _, err := svc.SetCurrent(first.ID, 1); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	current, _ = svc.Current(1)
	if current.ID != first.ID {
		t.Errorf("expected audit %d current, got %d", first.ID, current.ID)
	}

	if _, err := svc.SetCurrent(999, 1); !errors.Is(err, repository.ErrAuditNotFound) {
		t.Errorf("expected ErrAuditNotFound for unknown audit, got %v", err)
	}
}
