package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/dbx"
	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/auth"
	"github.com/daianaegermichels/financas/internal/server/config"
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/repositories/repomanager"
)

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenIssuer
	publisher   events.Publisher
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, publisher events.Publisher, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenValidityDuration),
		publisher:   publisher,
		logger:      logger.With("module", "users"),
	}
}

// Authenticate returns the user owning email when password matches its hash.
// Unknown emails and wrong passwords both yield common.ErrAuthentication.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrAuthentication, msgUserNotFoundByEmail)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.NewError(common.ErrAuthentication, msgInvalidPassword)
	}

	return user, nil
}

// Register stores a new user with a bcrypt hash of password. The email
// uniqueness check and the insert share one transaction.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, common.Validation(msgInvalidEmail)
	}
	if password == "" {
		return nil, common.Validation(msgInvalidPasswordIn)
	}
	if len(password) > auth.MaxPasswordLength {
		return nil, common.Validation(msgPasswordTooLong)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *models.User

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return common.NewError(common.ErrAlreadyExists, msgEmailInUse)
		}

		user, err = repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hash})
		if errors.Is(err, common.ErrAlreadyExists) {
			return common.NewError(common.ErrAlreadyExists, msgEmailInUse)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	publish(ctx, s.publisher, s.logger, events.Event{Type: events.UserRegistered, UserID: user.ID})

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(msgUserNotFoundByID)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(msgUserNotFoundByEmail)
		}
		return nil, err
	}
	return user, nil
}

// IssueToken returns a signed bearer token for user.
func (s *UserService) IssueToken(user *models.User) (string, error) {
	return s.tokens.Generate(user)
}

// ValidateToken fails closed on bad signature, algorithm or expiry.
func (s *UserService) ValidateToken(token string) bool {
	return s.tokens.Valid(token)
}

// SubjectOf returns the email of a valid token.
func (s *UserService) SubjectOf(token string) (string, error) {
	return s.tokens.Subject(token)
}
