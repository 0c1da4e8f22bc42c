package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tamv/internal/config"
	httpserver "tamv/internal/http"
	"tamv/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_TipNotifiesRecipient(t *testing.T) {
	e := setup(t)
	a := e.newProfile(t, "50")
	b := e.newProfile(t, "0")

	tokenA, err := service.GenerateJWT(a.ID, time.Hour)
	require.NoError(t, err)
	tokenB, err := service.GenerateJWT(b.ID, time.Hour)
	require.NoError(t, err)

	// start server with real routes
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{RateLimit: 1000, RateWindow: 60, EconomyRateRPS: 100, EconomyRateBurst: 100}
	httpserver.RegisterRoutes(r, cfg, httpserver.Deps{DB: e.db, Hub: e.hub, Handler: e.handler, Version: "test"})
	ts := httptest.NewServer(r)
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + tokenB
	connB, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "dial B")
	defer connB.Close()

	// single reader goroutine to avoid concurrent ReadMessage calls
	frames := make(chan map[string]any, 16)
	go func() {
		defer close(frames)
		for {
			_, msg, err := connB.ReadMessage()
			if err != nil {
				return
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			frames <- obj
		}
	}()
	waitFor := func(want string) map[string]any {
		deadline := time.After(3 * time.Second)
		for {
			select {
			case f, ok := <-frames:
				if !ok {
					t.Fatalf("connection closed before %s", want)
				}
				if f["type"] == want {
					return f
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %s", want)
			}
		}
	}
	waitFor("ready")

	body, _ := json.Marshal(map[string]any{"to": b.ID, "amount": "10.00", "description": "e2e"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/wallet/tip", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenA)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	n := waitFor("notification")
	data, ok := n["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tip_received", data["kind"])
	assert.Equal(t, b.ID, data["user_id"])

	// overdraft maps to 402
	body, _ = json.Marshal(map[string]any{"to": b.ID, "amount": "1000"})
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/api/v1/wallet/tip", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}
