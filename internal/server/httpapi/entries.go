package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/server/models"
)

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.Validation(fmt.Sprintf("Parâmetro inválido: %s.", name))
	}
	return n, nil
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.entries.Create(r.Context(), req.toModel())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/lancamentos/%d", entry.ID))
	writeJSON(w, http.StatusCreated, newEntryResponse(entry))
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.entries.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry := req.toModel()
	entry.ID = id

	updated, err := s.entries.Update(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEntryResponse(updated))
}

func (s *Server) updateEntryStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.entries.UpdateStatus(r.Context(), id, parseStatus(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEntryResponse(updated))
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.entries.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// searchEntries filters by descricao, mes, ano, usuario, tipo and status.
// A usuario that does not resolve is a bad request, not an empty result.
func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month, err := queryInt(r, "mes")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	year, err := queryInt(r, "ano")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := models.EntryFilter{
		Description: q.Get("descricao"),
		Month:       month,
		Year:        year,
		Type:        parseType(q.Get("tipo")),
		Status:      parseStatus(q.Get("status")),
	}

	if v := q.Get("usuario"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, common.Validation("Parâmetro inválido: usuario."))
			return
		}
		if _, err := s.users.GetByID(r.Context(), userID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				err = common.Validation("Não foi possível realizar a consulta. Usuário não encontrado para o Id informado.")
			}
			s.writeError(w, r, err)
			return
		}
		filter.UserID = userID
	}

	list, err := s.entries.Search(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEntryResponses(list))
}
