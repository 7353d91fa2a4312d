package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/dbx"
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/repositories/entries"
	"github.com/daianaegermichels/financas/internal/server/repositories/users"
	"github.com/shopspring/decimal"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectCommits registers n successful transactions.
func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- in-memory repositories ---

type memStore struct {
	mu      sync.Mutex
	users   map[int64]models.User
	entries map[int64]models.Entry
	lastID  int64

	createUserErr error
	searchErr     error
	sumErr        error
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]models.User{}, entries: map[int64]models.Entry{}}
}

func (s *memStore) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *memStore) addUser(name, email, hash string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: s.nextID(), Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return &u
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	u.ID = r.s.nextID()
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	return u, nil
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

type memEntries struct{ s *memStore }

func (r memEntries) Create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.nextID()
	e.CreatedAt = time.Now()
	r.s.entries[e.ID] = *e
	return e, nil
}

func (r memEntries) Update(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[e.ID]; !ok {
		return nil, common.ErrNotFound
	}
	r.s.entries[e.ID] = *e
	return e, nil
}

func (r memEntries) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.entries, id)
	return nil
}

func (r memEntries) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (r memEntries) Search(ctx context.Context, f models.EntryFilter) ([]*models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.searchErr != nil {
		return nil, r.s.searchErr
	}
	result := []*models.Entry{}
	for _, e := range r.s.entries {
		e := e
		switch {
		case f.Description != "" && e.Description != f.Description,
			f.Month != 0 && e.Month != f.Month,
			f.Year != 0 && e.Year != f.Year,
			f.UserID != 0 && e.UserID != f.UserID,
			f.Type != "" && e.Type != f.Type,
			f.Status != "" && e.Status != f.Status:
			continue
		}
		result = append(result, &e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memEntries) SumByTypeAndStatus(ctx context.Context, userID int64, t models.EntryType, st models.EntryStatus) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sumErr != nil {
		return decimal.Zero, r.s.sumErr
	}
	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.UserID == userID && e.Type == t && e.Status == st {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

type fakeRepoManager struct{ store *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return memUsers{m.store} }
func (m *fakeRepoManager) Entries(db dbx.DBTX) entries.Repository       { return memEntries{m.store} }

// --- events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
