package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/pkg/database"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

// MemoryStore keeps people, elections and audit logs in process memory. It
// satisfies the same contracts as the postgres repositories, including the
// versioned optimistic transaction, and backs STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	persons   map[string]models.Person
	elections map[string]*models.Election
	audits    []models.AuditLog
	policy    database.RetryPolicy
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(policy database.RetryPolicy) *MemoryStore {
	return &MemoryStore{
		persons:   make(map[string]models.Person),
		elections: make(map[string]*models.Election),
		policy:    policy,
	}
}

// People

// FindByID returns the person with id or sql.ErrNoRows.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

// FindByUsername matches the username case-insensitively.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

// FindByLogin resolves a username first, then the oldest account with that email.
func (s *MemoryStore) FindByLogin(ctx context.Context, login string) (*models.Person, error) {
	if p, err := s.FindByUsername(ctx, login); err == nil {
		return p, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match *models.Person
	for _, p := range s.persons {
		if strings.EqualFold(p.Email, login) && (match == nil || p.CreatedAt.Before(match.CreatedAt)) {
			p := p
			match = &p
		}
	}
	if match == nil {
		return nil, sql.ErrNoRows
	}
	return match, nil
}

// FindByIDs returns the people matching ids. Unknown ids are skipped.
func (s *MemoryStore) FindByIDs(ctx context.Context, ids []string) ([]models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var persons []models.Person
	for _, id := range ids {
		if p, ok := s.persons[id]; ok {
			persons = append(persons, p)
		}
	}
	return persons, nil
}

// List filters and pages people ordered by last name, first name and username.
func (s *MemoryStore) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	s.mu.RLock()
	var matched []models.Person
	search := strings.ToLower(filter.Search)
	for _, p := range s.persons {
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		if filter.Member != nil && p.IsMember != *filter.Member {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Username+" "+p.Firstname+" "+p.Lastname+" "+p.Email), search) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Lastname != b.Lastname {
			return a.Lastname < b.Lastname
		}
		if a.Firstname != b.Firstname {
			return a.Firstname < b.Firstname
		}
		return a.Username < b.Username
	})

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	total := len(matched)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return matched[start:end], total, nil
}

// Create assigns an id and timestamps. Usernames are unique ignoring case.
func (s *MemoryStore) Create(ctx context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	for _, p := range s.persons {
		if strings.EqualFold(p.Username, person.Username) {
			return appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now
	s.persons[person.ID] = *person
	return nil
}

// Update replaces the profile, keeping the password hash and creation time.
func (s *MemoryStore) Update(ctx context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.persons[person.ID]
	if !ok {
		return sql.ErrNoRows
	}
	person.PasswordHash = stored.PasswordHash
	person.CreatedAt = stored.CreatedAt
	person.UpdatedAt = time.Now().UTC()
	s.persons[person.ID] = *person
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *MemoryStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.PasswordHash = passwordHash
	p.UpdatedAt = updatedAt
	s.persons[id] = p
	return nil
}

// Deactivate marks a person inactive and keeps the first leave date.
func (s *MemoryStore) Deactivate(ctx context.Context, id string, leftOn time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Active = false
	if p.Left == nil {
		p.Left = &leftOn
	}
	p.UpdatedAt = time.Now().UTC()
	s.persons[id] = p
	return nil
}

// Audit

// CreateAuditLog appends an audit entry.
func (s *MemoryStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, *log)
	return nil
}

// ListAuditLogs returns up to limit entries, newest first.
func (s *MemoryStore) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs := make([]models.AuditLog, 0, min(limit, len(s.audits)))
	for i := len(s.audits) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, s.audits[i])
	}
	return logs, nil
}

// Elections

// CreateElection stores a new election at version 1.
func (s *MemoryStore) CreateElection(ctx context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if election.ID == "" {
		election.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	election.CreatedAt = now
	election.UpdatedAt = now
	election.Version = 1
	s.elections[election.ID] = election.Clone()
	return nil
}

// FindElection returns a copy of the stored election or sql.ErrNoRows.
func (s *MemoryStore) FindElection(ctx context.Context, id string) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e.Clone(), nil
}

// ListElectionsEndingAfter returns copies of elections whose voting ends after cutoff.
func (s *MemoryStore) ListElectionsEndingAfter(ctx context.Context, cutoff time.Time) ([]*models.Election, error) {
	s.mu.RLock()
	var elections []*models.Election
	for _, e := range s.elections {
		if !e.VoteEnd.Before(cutoff) {
			elections = append(elections, e.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(elections, func(i, j int) bool {
		if !elections[i].VoteEnd.Equal(elections[j].VoteEnd) {
			return elections[i].VoteEnd.Before(elections[j].VoteEnd)
		}
		return elections[i].Position < elections[j].Position
	})
	return elections, nil
}

// RunInTransaction gives fn private copies of the records it reads and
// commits its writes only if no other transaction committed the same
// elections in between. Conflicts re-run fn under the retry policy.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn TxFunc) error {
	return database.Retry(ctx, s.policy, isConflict, func(ctx context.Context) error {
		tx := &memoryTx{store: s, pending: make(map[string]pendingWrite)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit()
	})
}

type pendingWrite struct {
	baseVersion int64
	election    *models.Election
}

type memoryTx struct {
	store   *MemoryStore
	pending map[string]pendingWrite
}

// FindElection returns the staged copy of an election, else the committed one.
func (t *memoryTx) FindElection(ctx context.Context, id string) (*models.Election, error) {
	if w, ok := t.pending[id]; ok {
		return w.election.Clone(), nil
	}
	return t.store.FindElection(ctx, id)
}

// FindPerson reads a person outside the versioned working set.
func (t *memoryTx) FindPerson(ctx context.Context, id string) (*models.Person, error) {
	return t.store.FindByID(ctx, id)
}

// SaveRolls stages the election's rolls for commit.
func (t *memoryTx) SaveRolls(ctx context.Context, election *models.Election) error {
	w, ok := t.pending[election.ID]
	if !ok {
		current, err := t.store.FindElection(ctx, election.ID)
		if err != nil {
			return err
		}
		w.baseVersion = current.Version
	}
	expected := w.baseVersion
	if ok {
		expected = w.election.Version
	}
	if election.Version != expected {
		return appErrors.ErrTransactionConflict
	}
	election.Version++
	election.UpdatedAt = time.Now().UTC()
	w.election = election.Clone()
	t.pending[election.ID] = w
	return nil
}

func (t *memoryTx) commit() error {
	if len(t.pending) == 0 {
		return nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, w := range t.pending {
		stored, ok := t.store.elections[id]
		if !ok || stored.Version != w.baseVersion {
			return appErrors.ErrTransactionConflict
		}
	}
	for id, w := range t.pending {
		t.store.elections[id] = w.election
	}
	return nil
}
