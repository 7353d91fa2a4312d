package httpapi

import (
	"encoding/json"

	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type authResponse struct {
	Name  string `json:"nome"`
	Token string `json:"token"`
}

type userRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// entryRequest accepts "valor" as a JSON number or string.
type entryRequest struct {
	Description string          `json:"descricao"`
	Month       int             `json:"mes"`
	Year        int             `json:"ano"`
	Amount      decimal.Decimal `json:"valor"`
	Type        string          `json:"tipo"`
	Status      string          `json:"status"`
	User        int64           `json:"usuario"`
}

// toModel keeps unrecognised type and status names as they are so that the
// service reports them as invalid.
func (r entryRequest) toModel() *models.Entry {
	e := &models.Entry{
		Description: r.Description,
		Month:       r.Month,
		Year:        r.Year,
		Amount:      r.Amount,
		UserID:      r.User,
		Type:        parseType(r.Type),
		Status:      parseStatus(r.Status),
	}
	return e
}

func parseType(s string) models.EntryType {
	if s == "" {
		return ""
	}
	if t, err := models.ParseEntryType(s); err == nil {
		return t
	}
	return models.EntryType(s)
}

func parseStatus(s string) models.EntryStatus {
	if s == "" {
		return ""
	}
	if st, err := models.ParseEntryStatus(s); err == nil {
		return st
	}
	return models.EntryStatus(s)
}

type statusRequest struct {
	Status string `json:"status"`
}

type entryResponse struct {
	ID          int64       `json:"id"`
	Description string      `json:"descricao"`
	Month       int         `json:"mes"`
	Year        int         `json:"ano"`
	Amount      json.Number `json:"valor"`
	Type        string      `json:"tipo"`
	Status      string      `json:"status"`
	User        int64       `json:"usuario"`
	CreatedAt   string      `json:"dataCadastro,omitempty"`
}

func newEntryResponse(e *models.Entry) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		Description: e.Description,
		Month:       e.Month,
		Year:        e.Year,
		Amount:      json.Number(e.Amount.StringFixed(2)),
		Type:        string(e.Type),
		Status:      string(e.Status),
		User:        e.UserID,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.Format(dateLayout)
	}
	return resp
}

func newEntryResponses(list []*models.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, newEntryResponse(e))
	}
	return out
}

type statementResponse struct {
	Key string `json:"chave"`
	URL string `json:"url"`
}
