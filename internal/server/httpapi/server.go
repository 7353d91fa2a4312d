// Package httpapi exposes the user and entry services over a JSON REST API
// routed with gorilla/mux.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const shutdownTimeout = 5 * time.Second

type UserService interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IssueToken(user *models.User) (string, error)
	ValidateToken(token string) bool
	SubjectOf(token string) (string, error)
}

type EntryService interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	Update(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Entry, error)
	Search(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	UpdateStatus(ctx context.Context, id int64, status models.EntryStatus) (*models.Entry, error)
	BalanceForUser(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type StatementService interface {
	Export(ctx context.Context, userID int64, year int) (*services.Statement, error)
}

// Server ties the services to the router.
type Server struct {
	address    string
	users      UserService
	entries    EntryService
	statements StatementService
	logger     logging.Logger
	router     *mux.Router
}

func NewServer(address string, l logging.Logger, us UserService, es EntryService, ss StatementService) *Server {
	s := &Server{
		address:    address,
		users:      us,
		entries:    es,
		statements: ss,
		logger:     l.With("module", "http_server"),
	}

	mx := mux.NewRouter()
	mx.Use(s.requestID, s.logRequests, s.recoverer)

	mx.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	mx.HandleFunc("/api/usuarios/autenticar", s.authenticate).Methods(http.MethodPost)
	mx.HandleFunc("/api/usuarios", s.register).Methods(http.MethodPost)

	// protected routes
	pr := mx.PathPrefix("/api").Subrouter()
	pr.Use(s.authRequired)

	pr.HandleFunc("/usuarios/{id:[0-9]+}/saldo", s.balance).Methods(http.MethodGet)
	pr.HandleFunc("/usuarios/{id:[0-9]+}/extrato", s.statement).Methods(http.MethodGet)

	pr.HandleFunc("/lancamentos", s.createEntry).Methods(http.MethodPost)
	pr.HandleFunc("/lancamentos", s.searchEntries).Methods(http.MethodGet)
	pr.HandleFunc("/lancamentos/{id:[0-9]+}", s.getEntry).Methods(http.MethodGet)
	pr.HandleFunc("/lancamentos/{id:[0-9]+}", s.updateEntry).Methods(http.MethodPut)
	pr.HandleFunc("/lancamentos/{id:[0-9]+}", s.deleteEntry).Methods(http.MethodDelete)
	pr.HandleFunc("/lancamentos/{id:[0-9]+}/atualiza-status", s.updateEntryStatus).Methods(http.MethodPut)

	s.router = mx
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

// serve returns only after in-flight requests have drained or the
// shutdown timeout expired.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan error, 1)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-stopped; err != nil {
		s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		return err
	}

	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
