package iris

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second, zap.NewNop().Sugar())
}

func TestClient_CreateCase(t *testing.T) {
	var gotAuth string
	var gotBody CaseCreate

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/manage/cases/add", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "case created",
			"data": map[string]interface{}{
				"case_id":     42,
				"case_name":   gotBody.CaseName,
				"case_soc_id": gotBody.CaseSOCID,
			},
		})
	})

	created, err := client.CreateCase(context.Background(), CaseCreate{
		CaseName:  "[Morakib] test case",
		CaseSOCID: "MOK-ABCD1234",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, created.CaseID)
	assert.Equal(t, "[Morakib] test case", created.CaseName)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "MOK-ABCD1234", gotBody.CaseSOCID)
}

func TestClient_EnvelopeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "error",
			"message": "invalid customer",
		})
	})

	_, err := client.CreateCase(context.Background(), CaseCreate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid customer")
}

func TestClient_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := client.GetCustomers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_AddIOCsStopsOnFailure(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "success"})
	})

	err := client.AddIOCs(context.Background(), 1, []IOCCreate{
		{IOCValue: "1.2.3.4", IOCTypeID: IOCTypeIP},
		{IOCValue: "5.6.7.8", IOCTypeID: IOCTypeIP},
		{IOCValue: "9.9.9.9", IOCTypeID: IOCTypeIP},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5.6.7.8")
	assert.Equal(t, 2, calls)
}
