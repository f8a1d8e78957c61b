package doorlock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	var lastControl map[string]bool
	var lastCard map[string]string
	cardsBody := `["A1B2C3D4","DEADBEEF"]`

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"doorLocked":true,"cardDetected":true,"lastCardId":"A1B2C3D4","isAuthorized":false}`))
	})
	mux.HandleFunc("/control", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		lastControl = nil
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&lastControl))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/authorized-cards", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cardsBody))
	})
	mux.HandleFunc("/add-card", func(w http.ResponseWriter, r *http.Request) {
		lastCard = nil
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&lastCard))
		if lastCard["cardId"] == "" {
			http.Error(w, "missing card", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	ctx := context.Background()

	t.Run("status", func(t *testing.T) {
		status, err := client.Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.DoorLocked)
		assert.Equal(t, "A1B2C3D4", status.LastCardID)
		assert.False(t, status.IsAuthorized)
	})

	t.Run("unlock and lock", func(t *testing.T) {
		result, err := client.Unlock(ctx)
		require.NoError(t, err)
		assert.Equal(t, true, result["success"])
		assert.Equal(t, map[string]bool{"unlock": true}, lastControl)

		_, err = client.Lock(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"lock": true}, lastControl)
	})

	t.Run("cards as array or object", func(t *testing.T) {
		cards, err := client.AuthorizedCards(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1B2C3D4", "DEADBEEF"}, cards)

		cardsBody = `{"cards":["CAFE0001"]}`
		cards, err = client.AuthorizedCards(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"CAFE0001"}, cards)
	})

	t.Run("add card", func(t *testing.T) {
		_, err := client.AddCard(ctx, "CAFE0002")
		require.NoError(t, err)
		assert.Equal(t, "CAFE0002", lastCard["cardId"])

		_, err = client.AddCard(ctx, "")
		assert.EqualError(t, err, "door controller add-card returned 400")
	})
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, 200*time.Millisecond)
	_, err := client.Unlock(context.Background())
	assert.ErrorContains(t, err, "door controller control failed")
}
