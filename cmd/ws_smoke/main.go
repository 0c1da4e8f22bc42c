package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tamv/internal/db"
	"tamv/internal/domain"
	"tamv/internal/repository"
	"tamv/internal/service"
)

// ws_smoke tips from A to B over HTTP against a running server and waits
// for B's realtime notification.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	pr := repository.NewProfileRepository(pool)
	ctx := context.Background()

	// prepare profiles
	uA, err := pr.Ensure(ctx, &domain.Profile{ID: "smoke-a", Username: "smokeA", Balance: decimal.NewFromInt(100)})
	if err != nil {
		log.Fatalf("ensure A: %v", err)
	}
	uB, err := pr.Ensure(ctx, &domain.Profile{ID: "smoke-b", Username: "smokeB"})
	if err != nil {
		log.Fatalf("ensure B: %v", err)
	}

	// init jwt and generate tokens
	service.InitJWT(jwtSecret)
	tokenA, err := service.GenerateJWT(uA.ID, time.Hour)
	if err != nil {
		log.Fatalf("gen token A: %v", err)
	}
	tokenB, err := service.GenerateJWT(uB.ID, time.Hour)
	if err != nil {
		log.Fatalf("gen token B: %v", err)
	}

	dialer := websocket.DefaultDialer

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	connB, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenB), nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	waitFor := func(conn *websocket.Conn, want string, tmo time.Duration) (map[string]any, bool) {
		deadline := time.Now().Add(tmo)
		for time.Now().Before(deadline) {
			conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				continue
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			if t, ok := obj["type"].(string); ok && t == want {
				return obj, true
			}
		}
		return nil, false
	}

	if _, ok := waitFor(connB, "ready", 2*time.Second); !ok {
		log.Fatal("B: no ready frame")
	}
	if err := connB.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		log.Fatalf("write B: %v", err)
	}
	if _, ok := waitFor(connB, "pong", 2*time.Second); !ok {
		log.Fatal("B: no pong")
	}

	body, _ := json.Marshal(map[string]any{"to": uB.ID, "amount": "1.00", "description": "smoke"})
	req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%s/api/v1/wallet/tip", port), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenA)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("tip: %v", err)
	}
	resp.Body.Close()
	log.Printf("tip status=%d", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("tip failed with status %d", resp.StatusCode)
	}

	n, ok := waitFor(connB, "notification", 3*time.Second)
	if !ok {
		log.Fatal("B: no notification")
	}
	log.Printf("B got: %v", n["data"])

	log.Println("smoke test finished")
}
