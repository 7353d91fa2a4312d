package httpapi

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/services"
	"github.com/shopspring/decimal"
)

const testToken = "good-token"

type fakeUsers struct {
	users map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, Name: "Maria", Email: "maria@example.com"},
	}}
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			if password != "s3nha" {
				return nil, common.NewError(common.ErrAuthentication, "Senha inválida!")
			}
			return u, nil
		}
	}
	return nil, common.NewError(common.ErrAuthentication, "Usuário não encontrado para o email informado!")
}

func (f *fakeUsers) Register(_ context.Context, name, email, password string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return nil, common.NewError(common.ErrAlreadyExists, "Já existe um usuário com este email!")
		}
	}
	u := &models.User{ID: int64(len(f.users) + 1), Name: name, Email: email, PasswordHash: "hash"}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.NotFound("Usuário não encontrado para o Id informado.")
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) IssueToken(*models.User) (string, error) { return testToken, nil }
func (f *fakeUsers) ValidateToken(token string) bool         { return token == testToken }

func (f *fakeUsers) SubjectOf(token string) (string, error) {
	if token != testToken {
		return "", common.ErrInvalidToken
	}
	return "maria@example.com", nil
}

type fakeEntries struct {
	entries    map[int64]*models.Entry
	lastFilter models.EntryFilter
	lastStatus models.EntryStatus
	balance    decimal.Decimal
	err        error
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{entries: map[int64]*models.Entry{}}
}

func (f *fakeEntries) Create(_ context.Context, e *models.Entry) (*models.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e.Description == "" {
		return nil, common.Validation("Informe uma Descrição válida.")
	}
	e.ID = int64(len(f.entries) + 1)
	e.Status = models.EntryStatusPending
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeEntries) Update(_ context.Context, e *models.Entry) (*models.Entry, error) {
	if _, ok := f.entries[e.ID]; !ok {
		return nil, common.NotFound("Lançamento não encontrado na base de dados.")
	}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeEntries) Delete(_ context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return common.NotFound("Lançamento não encontrado na base de dados.")
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeEntries) GetByID(_ context.Context, id int64) (*models.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.entries[id]; ok {
		return e, nil
	}
	return nil, common.NotFound("Lançamento não encontrado na base de dados.")
}

func (f *fakeEntries) Search(_ context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	f.lastFilter = filter
	out := []*models.Entry{}
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntries) UpdateStatus(_ context.Context, id int64, status models.EntryStatus) (*models.Entry, error) {
	f.lastStatus = status
	if !status.Valid() {
		return nil, common.Validation("Status inválido.")
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, common.NotFound("Lançamento não encontrado na base de dados.")
	}
	e.Status = status
	return e, nil
}

func (f *fakeEntries) BalanceForUser(_ context.Context, userID int64) (decimal.Decimal, error) {
	if userID != 1 {
		return decimal.Zero, common.NotFound("Usuário não encontrado para o Id informado.")
	}
	return f.balance, nil
}

type fakeStatements struct {
	userID int64
	year   int
}

func (f *fakeStatements) Export(_ context.Context, userID int64, year int) (*services.Statement, error) {
	f.userID, f.year = userID, year
	return &services.Statement{Key: "statements/1/x.csv", URL: "http://s3/statements/1/x.csv"}, nil
}

type testEnv struct {
	server     *Server
	users      *fakeUsers
	entries    *fakeEntries
	statements *fakeStatements
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:      newFakeUsers(),
		entries:    newFakeEntries(),
		statements: &fakeStatements{},
	}
	env.server = NewServer(":0", logging.Nop{}, env.users, env.entries, env.statements)
	return env
}

// do sends a request through the router; authed adds the test bearer token.
func (e *testEnv) do(t *testing.T, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}
