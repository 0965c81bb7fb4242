package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/obralink/importkit/modules/importing/domain/batch"
	"github.com/obralink/importkit/modules/importing/domain/conflict"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/modules/importing/services"
	"github.com/obralink/importkit/pkg/httpapi"
	"github.com/obralink/importkit/pkg/serrors"
)

// ImportController exposes the reconciliation pipeline over JSON. Rows
// arrive as arrays of key→cell maps keyed by schema column keys; the
// detect endpoint returns the conflict report, the import endpoint takes the
// same rows plus operator resolutions and returns the batch result.
type ImportController struct {
	imports *services.ImportService
}

func NewImportController(imports *services.ImportService) *ImportController {
	return &ImportController{imports: imports}
}

func (c *ImportController) Register(r *mux.Router) {
	r.HandleFunc("/importing/{family}/conflicts", c.detect).Methods(http.MethodPost)
	r.HandleFunc("/importing/{family}", c.importRows).Methods(http.MethodPost)
	r.HandleFunc("/importing/batches", c.history).Methods(http.MethodGet)
	r.HandleFunc("/importing/batches/{id}/revert", c.revert).Methods(http.MethodPost)
}

type rowsRequest struct {
	Rows        []map[string]any                          `json:"rows"`
	Resolutions map[string]map[string]conflict.Resolution `json:"resolutions,omitempty"`
}

func (req *rowsRequest) toRows() []row.Row {
	out := make([]row.Row, 0, len(req.Rows))
	for i, cells := range req.Rows {
		out = append(out, row.New(i+1, cells))
	}
	return out
}

func (c *ImportController) detect(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	var req rowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "failed to parse request body", nil)
		return
	}
	conflicts, err := c.imports.Detect(r.Context(), family, req.toRows())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []conflict.Conflict{}
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

func (c *ImportController) importRows(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	var req rowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "failed to parse request body", nil)
		return
	}
	result, err := c.imports.Import(r.Context(), family, req.toRows(), conflict.ParseSet(req.Resolutions))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, result)
}

type batchResponse struct {
	ID         uuid.UUID `json:"id"`
	EntityType string    `json:"entityType"`
	RowCount   int       `json:"rowCount"`
	Status     string    `json:"status"`
	CreatedAt  string    `json:"createdAt"`
}

func (c *ImportController) history(w http.ResponseWriter, r *http.Request) {
	params := &batch.FindParams{
		EntityType: r.URL.Query().Get("family"),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}
	batches, err := c.imports.History(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchResponse{
			ID:         b.ID(),
			EntityType: b.EntityType(),
			RowCount:   b.RowCount(),
			Status:     string(b.Status()),
			CreatedAt:  b.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"batches": out})
}

func (c *ImportController) revert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid batch id", nil)
		return
	}
	removed, err := c.imports.Revert(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"batchId": id, "rowsRemoved": removed})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeServiceError(w http.ResponseWriter, err error) {
	var coded *serrors.Error
	switch {
	case errors.Is(err, services.ErrUnknownFamily):
		httpapi.WriteError(w, http.StatusNotFound, services.ErrUnknownFamily.Code, err.Error(), nil)
	case errors.Is(err, services.ErrTooManyRows):
		httpapi.WriteError(w, http.StatusRequestEntityTooLarge, services.ErrTooManyRows.Code, err.Error(), nil)
	case errors.As(err, &coded):
		httpapi.WriteError(w, http.StatusBadRequest, coded.Code, coded.Message, map[string]string{"hint": coded.Hint})
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
