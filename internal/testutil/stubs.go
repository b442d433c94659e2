package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/domain/session"
	"github.com/turtacn/ChemScribe/internal/infrastructure/database/postgres"
	miniostore "github.com/turtacn/ChemScribe/internal/infrastructure/storage/minio"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Scripted AI provider
// ─────────────────────────────────────────────────────────────────────────────

// ScriptedReply is one canned provider turn: either a text or an error.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedProvider implements ai.Provider by replaying a fixed sequence of
// replies and recording every prompt it receives.
type ScriptedProvider struct {
	mu      sync.Mutex
	name    string
	replies []ScriptedReply
	Prompts []string
}

// NewScriptedProvider creates a provider that replays the given replies in
// order.  Calls past the end of the script repeat the final reply.
func NewScriptedProvider(name string, replies ...ScriptedReply) *ScriptedProvider {
	return &ScriptedProvider{name: name, replies: replies}
}

// Name implements ai.Provider.
func (p *ScriptedProvider) Name() string { return p.name }

// GenerateText implements ai.Provider.
func (p *ScriptedProvider) GenerateText(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Prompts = append(p.Prompts, prompt)
	if len(p.replies) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProviderEmptyOutput, "script exhausted")
	}
	idx := len(p.Prompts) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	r := p.replies[idx]
	return r.Text, r.Err
}

// CallCount returns how many prompts the provider has served.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Prompts)
}

// LastPrompt returns the most recent prompt, or "" when none was made.
func (p *ScriptedProvider) LastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Prompts) == 0 {
		return ""
	}
	return p.Prompts[len(p.Prompts)-1]
}

// EchoProvider implements ai.Provider by reflecting a marker plus the prompt
// tail, useful for asserting that feedback reached the prompt.
type EchoProvider struct {
	Marker string
}

// Name implements ai.Provider.
func (p *EchoProvider) Name() string { return "echo" }

// GenerateText implements ai.Provider.
func (p *EchoProvider) GenerateText(_ context.Context, prompt string) (string, error) {
	tail := prompt
	if len(tail) > 120 {
		tail = tail[len(tail)-120:]
	}
	return p.Marker + " :: " + tail, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scripted molecule validator
// ─────────────────────────────────────────────────────────────────────────────

// StubValidator implements chem.Validator with a scripted verdict sequence.
type StubValidator struct {
	mu        sync.Mutex
	available bool
	verdicts  []molecule.Verdict
	calls     int
}

// NewStubValidator creates a validator replaying verdicts in order; calls past
// the end repeat the final verdict.
func NewStubValidator(verdicts ...molecule.Verdict) *StubValidator {
	return &StubValidator{available: true, verdicts: verdicts}
}

// NewUnavailableValidator creates a validator whose capability is absent.
func NewUnavailableValidator() *StubValidator {
	return &StubValidator{available: false}
}

// Available implements chem.Validator.
func (v *StubValidator) Available() bool { return v.available }

// Validate implements chem.Validator.
func (v *StubValidator) Validate(_ context.Context, notation string) (molecule.Verdict, error) {
	if !v.available {
		return molecule.Verdict{}, apperrors.New(apperrors.ErrCodeValidatorUnavailable,
			"molecule validator unavailable")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.verdicts) == 0 {
		return molecule.Verdict{Valid: false, Reason: "no verdict scripted"}, nil
	}
	idx := v.calls
	if idx >= len(v.verdicts) {
		idx = len(v.verdicts) - 1
	}
	v.calls++
	return v.verdicts[idx], nil
}

// Render implements chem.Validator with a fixed stand-in PNG payload.
func (v *StubValidator) Render(_ context.Context, _ *molecule.Candidate) ([]byte, error) {
	if !v.available {
		return nil, apperrors.New(apperrors.ErrCodeValidatorUnavailable,
			"molecule validator unavailable")
	}
	return []byte("\x89PNG\r\n\x1a\nstub"), nil
}

// CallCount returns how many validations were performed.
func (v *StubValidator) CallCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory history repository
// ─────────────────────────────────────────────────────────────────────────────

// MemHistory implements postgres.HistoryRepository in memory.  Retention, when
// positive, mirrors the real repository's cap: Save drops the oldest sessions
// once more than Retention are stored.
type MemHistory struct {
	mu        sync.Mutex
	sessions  map[common.ID]*session.ResearchSession
	order     []common.ID
	Retention int
}

// NewMemHistory creates an empty repository with retention disabled.
func NewMemHistory() *MemHistory {
	return &MemHistory{sessions: map[common.ID]*session.ResearchSession{}}
}

// Save implements postgres.HistoryRepository.
func (m *MemHistory) Save(_ context.Context, s *session.ResearchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	clone := *s
	m.sessions[s.ID] = &clone
	for m.Retention > 0 && len(m.order) > m.Retention {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.sessions, oldest)
	}
	return nil
}

// Get implements postgres.HistoryRepository.
func (m *MemHistory) Get(_ context.Context, id common.ID) (*session.ResearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeSessionNotFound, "research session not found")
	}
	clone := *s
	return &clone, nil
}

// List implements postgres.HistoryRepository, newest first.
func (m *MemHistory) List(_ context.Context, topicFilter string, limit int) ([]postgres.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []postgres.HistoryEntry
	for i := len(m.order) - 1; i >= 0; i-- {
		s := m.sessions[m.order[i]]
		if topicFilter != "" && !strings.Contains(strings.ToLower(s.Topic), strings.ToLower(topicFilter)) {
			continue
		}
		e := postgres.HistoryEntry{
			ID: s.ID, Topic: s.Topic, Source: string(s.Source),
			Provider: s.Provider, Model: s.Model, Status: s.Status,
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
		}
		if s.Proposal != nil {
			e.ProposalText = s.Proposal.Text
		}
		if s.Candidate != nil {
			e.SMILES = s.Candidate.SMILES
			e.MoleculeName = s.Candidate.Name
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// Delete implements postgres.HistoryRepository.
func (m *MemHistory) Delete(_ context.Context, id common.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return apperrors.New(apperrors.ErrCodeSessionNotFound, "research session not found")
	}
	delete(m.sessions, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAll implements postgres.HistoryRepository.
func (m *MemHistory) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = map[common.ID]*session.ResearchSession{}
	m.order = nil
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory object store
// ─────────────────────────────────────────────────────────────────────────────

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemStore implements storage/minio.ObjectStore in memory.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]memObject
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{objects: map[string]memObject{}}
}

func objectKey(bucket, key string) string { return bucket + "/" + key }

// Put implements ObjectStore.
func (m *MemStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[objectKey(bucket, key)] = memObject{data: cp, contentType: contentType, modified: time.Now()}
	return nil
}

// Get implements ObjectStore.
func (m *MemStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey(bucket, key)]
	if !ok {
		return nil, apperrors.NotFound("object not found").WithDetail("key=" + key)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// List implements ObjectStore.
func (m *MemStore) List(_ context.Context, bucket, prefix string) ([]miniostore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []miniostore.ObjectInfo
	want := bucket + "/"
	for k, obj := range m.objects {
		if !strings.HasPrefix(k, want) {
			continue
		}
		key := strings.TrimPrefix(k, want)
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, miniostore.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			LastModified: obj.modified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Remove implements ObjectStore.
func (m *MemStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey(bucket, key))
	return nil
}

// PresignGet implements ObjectStore with a deterministic fake URL.
func (m *MemStore) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectKey(bucket, key)]; !ok {
		return "", apperrors.NotFound("object not found").WithDetail("key=" + key)
	}
	return "https://objects.local/" + bucket + "/" + key, nil
}

// Has reports whether an object exists, for test assertions.
func (m *MemStore) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectKey(bucket, key)]
	return ok
}
