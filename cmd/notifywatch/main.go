// Package main provides a command line client that streams live notifications.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"appx/internal/middleware"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string `json:"type"`
	Payload struct {
		ID       uint   `json:"id"`
		Kind     string `json:"kind"`
		Message  string `json:"message"`
		OriginID *uint  `json:"origin_id"`
	} `json:"payload"`
}

var received int64

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	email := flag.String("email", "demo@example.com", "Account email")
	password := flag.String("password", "Password123", "Account password")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	flag.Parse()

	log := middleware.Logger.With(slog.String("host", *host), slog.String("email", *email))

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Error("login failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/notifications", RawQuery: "token=" + url.QueryEscape(token)}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		log.Error("websocket dial failed", slog.String("error", err.Error()), slog.Int("status", status))
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()
	log.Info("listening for notifications")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev event
			if err := conn.ReadJSON(&ev); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Warn("read failed", slog.String("error", err.Error()))
				}
				return
			}
			if ev.Type != "notification" {
				continue
			}
			atomic.AddInt64(&received, 1)
			attrs := []any{
				slog.Uint64("id", uint64(ev.Payload.ID)),
				slog.String("kind", ev.Payload.Kind),
			}
			if ev.Payload.OriginID != nil {
				attrs = append(attrs, slog.Uint64("origin_id", uint64(*ev.Payload.OriginID)))
			}
			log.Info(ev.Payload.Message, attrs...)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	select {
	case <-done:
	case <-timeout:
	case <-interrupt:
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	log.Info("disconnected", slog.Int64("received", atomic.LoadInt64(&received)))
}

func login(host, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/api/auth/login", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
