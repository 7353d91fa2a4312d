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
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(16,2): two decimal places, below 10^14.
const amountPlaces = 2

var maxAmount = decimal.New(1, 14)

type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	logger      logging.Logger
}

func NewEntryService(db *sql.DB, m repomanager.RepositoryManager, publisher events.Publisher, logger logging.Logger) *EntryService {
	return &EntryService{
		db:          db,
		repomanager: m,
		publisher:   publisher,
		logger:      logger.With("module", "entries"),
	}
}

// Validate checks the field rules of an entry in a fixed order and reports
// the first one violated as a common.ErrValidation.
func (s *EntryService) Validate(entry *models.Entry) error {
	switch {
	case strings.TrimSpace(entry.Description) == "":
		return common.Validation(msgInvalidDescription)
	case entry.Month < 1 || entry.Month > 12:
		return common.Validation(msgInvalidMonth)
	case entry.Year < 1000 || entry.Year > 9999:
		return common.Validation(msgInvalidYear)
	case entry.UserID == 0:
		return common.Validation(msgMissingUser)
	case !validAmount(entry.Amount):
		return common.Validation(msgInvalidAmount)
	case !entry.Type.Valid():
		return common.Validation(msgMissingType)
	}
	return nil
}

// validAmount reports whether a rounds to a positive value that fits the column.
func validAmount(a decimal.Decimal) bool {
	r := a.Round(amountPlaces)
	return r.IsPositive() && r.LessThan(maxAmount)
}

// Create validates entry, checks that its owner exists and stores it as
// PENDING.
func (s *EntryService) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	if err := s.Validate(entry); err != nil {
		return nil, err
	}
	entry.Status = models.EntryStatusPending
	entry.Amount = entry.Amount.Round(amountPlaces)

	var created *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.ensureOwner(ctx, tx, entry.UserID); err != nil {
			return err
		}

		var err error
		created, err = s.repomanager.Entries(tx).Create(ctx, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating entry: %w", err)
	}

	s.logger.Info(ctx, "entry created", "id", created.ID, "user_id", created.UserID)
	s.publish(ctx, events.EntryCreated, created)

	return created, nil
}

// Update replaces the stored entry with entry. The creation date is kept and
// so is the status when entry carries none.
func (s *EntryService) Update(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	if entry.ID == 0 {
		return nil, common.NewError(common.ErrInvalidState, msgMissingEntryID)
	}

	var updated *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		current, err := s.load(ctx, repo.GetByID, entry.ID)
		if err != nil {
			return err
		}

		if err := s.Validate(entry); err != nil {
			return err
		}
		if entry.Status != "" && !entry.Status.Valid() {
			return common.Validation(msgInvalidStatus)
		}
		if err := s.ensureOwner(ctx, tx, entry.UserID); err != nil {
			return err
		}

		entry.CreatedAt = current.CreatedAt
		entry.Amount = entry.Amount.Round(amountPlaces)
		if entry.Status == "" {
			entry.Status = current.Status
		}

		updated, err = repo.Update(ctx, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error updating entry: %w", err)
	}

	s.publish(ctx, events.EntryUpdated, updated)

	return updated, nil
}

func (s *EntryService) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return common.NewError(common.ErrInvalidState, msgMissingEntryID)
	}

	var deleted *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		var err error
		deleted, err = s.load(ctx, repo.GetByID, id)
		if err != nil {
			return err
		}

		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("error deleting entry: %w", err)
	}

	s.logger.Info(ctx, "entry deleted", "id", id, "user_id", deleted.UserID)
	s.publish(ctx, events.EntryDeleted, deleted)

	return nil
}

func (s *EntryService) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	return s.load(ctx, s.repomanager.Entries(s.db).GetByID, id)
}

// Search returns the entries equal to filter on its non-zero fields, by id.
func (s *EntryService) Search(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	result, err := s.repomanager.Entries(s.db).Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error searching entries: %w", err)
	}
	return result, nil
}

// UpdateStatus sets the status of the entry with id. Any valid status may
// follow any other.
func (s *EntryService) UpdateStatus(ctx context.Context, id int64, status models.EntryStatus) (*models.Entry, error) {
	if !status.Valid() {
		return nil, common.Validation(msgInvalidStatus)
	}
	if id == 0 {
		return nil, common.NewError(common.ErrInvalidState, msgMissingEntryID)
	}

	var updated *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		entry, err := s.load(ctx, repo.GetByID, id)
		if err != nil {
			return err
		}

		entry.Status = status
		updated, err = repo.Update(ctx, entry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error updating entry status: %w", err)
	}

	s.publish(ctx, events.EntryStatusChanged, updated)

	return updated, nil
}

// BalanceForUser is the sum of the user's settled income minus the sum of
// the user's settled expenses.
func (s *EntryService) BalanceForUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if err := s.ensureUser(ctx, s.db, userID, common.ErrNotFound); err != nil {
		return decimal.Zero, err
	}

	repo := s.repomanager.Entries(s.db)

	income, err := repo.SumByTypeAndStatus(ctx, userID, models.EntryTypeIncome, models.EntryStatusSettled)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error computing balance: %w", err)
	}

	expense, err := repo.SumByTypeAndStatus(ctx, userID, models.EntryTypeExpense, models.EntryStatusSettled)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error computing balance: %w", err)
	}

	return income.Sub(expense), nil
}

func (s *EntryService) load(ctx context.Context, get func(context.Context, int64) (*models.Entry, error), id int64) (*models.Entry, error) {
	entry, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(msgEntryNotFound)
		}
		return nil, err
	}
	return entry, nil
}

// ensureOwner rejects entries whose owner id does not resolve to a user.
func (s *EntryService) ensureOwner(ctx context.Context, db dbx.DBTX, userID int64) error {
	return s.ensureUser(ctx, db, userID, common.ErrValidation)
}

func (s *EntryService) ensureUser(ctx context.Context, db dbx.DBTX, userID int64, kind error) error {
	_, err := s.repomanager.Users(db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(kind, msgUserNotFoundByID)
		}
		return err
	}
	return nil
}

func (s *EntryService) publish(ctx context.Context, t events.Type, e *models.Entry) {
	publish(ctx, s.publisher, s.logger, events.Event{
		Type:    t,
		EntryID: e.ID,
		UserID:  e.UserID,
		Status:  string(e.Status),
		Amount:  e.Amount,
	})
}
