package entries

import (
	"context"

	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	Update(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Entry, error)
	Search(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	SumByTypeAndStatus(ctx context.Context, userID int64, t models.EntryType, s models.EntryStatus) (decimal.Decimal, error)
}
