package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appreject "github.com/wms/backend/internal/application/reject"
	"github.com/wms/backend/internal/domain/uom"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"github.com/wms/backend/internal/testutil"
)

func newRejectRouter(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := appreject.NewRejectService(
		persistence.NewGormRejectItemRepository(db),
		persistence.NewGormRejectLogRepository(db),
		uom.NewResolver(uom.Precision{Places: 3}),
		3,
		zap.NewNop(),
	)
	return newTestRouter(NewRejectHandler(svc))
}

var sugarBody = map[string]any{
	"sku":       "SGR-01",
	"name":      "Sugar",
	"base_unit": "Kg",
	"unit2":     "Sack",
	"ratio2":    "50",
	"unit3":     "Gram",
	"ratio3":    "1000",
	"op3":       "divide",
}

func createRejectItem(t *testing.T, r http.Handler) appreject.RejectItemResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/reject-items", sugarBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item appreject.RejectItemResponse
	decodeEnvelope(t, w, &item)
	return item
}

func TestRejectHandler_Items(t *testing.T) {
	r := newRejectRouter(t)
	item := createRejectItem(t, r)
	assert.Equal(t, []string{"Kg", "Sack", "Gram"}, item.Units)

	w := doJSON(t, r, http.MethodPost, "/api/v1/reject-items", sugarBody)
	assert.Equal(t, http.StatusConflict, w.Code)

	bad := map[string]any{"sku": "X", "name": "X", "unit2": "Box", "ratio2": "2", "op2": "add"}
	w = doJSON(t, r, http.MethodPost, "/api/v1/reject-items", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeEnvelope(t, w, nil).Error.Details, "op2")

	w = doJSON(t, r, http.MethodGet, "/api/v1/reject-items?search=sugar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []appreject.RejectItemResponse
	env := decodeEnvelope(t, w, &items)
	assert.EqualValues(t, 1, env.Meta.Total)

	update := map[string]any{"sku": "SGR-01", "name": "Granulated sugar", "base_unit": "Kg"}
	w = doJSON(t, r, http.MethodPut, "/api/v1/reject-items/"+item.ID.String(), update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated appreject.RejectItemResponse
	decodeEnvelope(t, w, &updated)
	assert.Equal(t, []string{"Kg"}, updated.Units)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/reject-items/"+item.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/v1/reject-items/"+item.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/v1/reject-items/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectHandler_Logs(t *testing.T) {
	r := newRejectRouter(t)
	item := createRejectItem(t, r)

	body := map[string]any{
		"date":  "2024-06-03T10:00:00Z",
		"notes": "Wet sacks",
		"items": []map[string]any{
			{"reject_item_id": item.ID, "qty": "2", "unit": "Sack", "reason": "water damage"},
			{"reject_item_id": item.ID, "qty": "1.5"},
		},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/reject-logs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var log appreject.RejectLogResponse
	decodeEnvelope(t, w, &log)
	assert.Regexp(t, `^REJ-\d{8}-\d{6}-\d{3}$`, log.ID)
	assert.Equal(t, testUserID, log.UserID)
	assert.True(t, log.TotalByUnit["Kg"].Equal(dec("101.5")))

	w = doJSON(t, r, http.MethodGet, "/api/v1/reject-logs/"+log.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body["items"] = []map[string]any{{"reject_item_id": item.ID, "qty": "3", "unit": "Gram"}}
	w = doJSON(t, r, http.MethodPut, "/api/v1/reject-logs/"+log.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeEnvelope(t, w, &log)
	require.Len(t, log.Items, 1)
	assert.True(t, log.Items[0].TotalBaseQuantity.Equal(dec("0.003")))

	w = doJSON(t, r, http.MethodGet, "/api/v1/reject-logs?from=2024-06-01&to=2024-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []appreject.RejectLogResponse
	env := decodeEnvelope(t, w, &logs)
	assert.EqualValues(t, 1, env.Meta.Total)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/reject-logs/"+log.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/v1/reject-logs/"+log.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectHandler_LogErrors(t *testing.T) {
	r := newRejectRouter(t)
	item := createRejectItem(t, r)

	t.Run("unknown reject item", func(t *testing.T) {
		body := map[string]any{"items": []map[string]any{{"reject_item_id": uuid.New(), "qty": "1"}}}
		w := doJSON(t, r, http.MethodPost, "/api/v1/reject-logs", body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown unit", func(t *testing.T) {
		body := map[string]any{"items": []map[string]any{{"reject_item_id": item.ID, "qty": "1", "unit": "Box"}}}
		w := doJSON(t, r, http.MethodPost, "/api/v1/reject-logs", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeEnvelope(t, w, nil).Error.Code)
	})

	t.Run("line details keep their index", func(t *testing.T) {
		body := map[string]any{"items": []map[string]any{{"qty": "1"}}}
		w := doJSON(t, r, http.MethodPost, "/api/v1/reject-logs", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeEnvelope(t, w, nil).Error.Details, "items[0].reject_item_id")
	})
}
