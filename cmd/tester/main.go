package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"polychat/client"
	"polychat/infrastructure/ws"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config drives a smoke run: Users connections join Room, each sends Messages,
// every one of them must receive Users*Messages deliveries.
type Config struct {
	ServerURL string        `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:3001/ws"`
	Room      string        `envconfig:"CHAT_ROOM_ID" default:"load-test"`
	Users     int           `envconfig:"TESTER_USERS" default:"10"`
	Messages  int           `envconfig:"TESTER_MESSAGES" default:"5"`
	Languages []string      `envconfig:"TESTER_LANGUAGES" default:"en,fr,es,de"`
	Timeout   time.Duration `envconfig:"TESTER_TIMEOUT" default:"30s"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.Users < 1 || len(config.Languages) == 0 {
		return exitConfig, fmt.Errorf("config error: at least one user and one language needed")
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Bound the whole run and honour Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	// 3. Connect and join every user before anyone talks.
	clients := make([]*client.Client, config.Users)
	for i := range clients {
		c, err := client.Dial(ctx, config.ServerURL, nil)
		if err != nil {
			return exitRuntime, err
		}
		defer func() { _ = c.Close() }()
		lang := config.Languages[i%len(config.Languages)]
		if err := c.Join(ctx, config.Room, fmt.Sprintf("user-%d", i), lang); err != nil {
			return exitRuntime, err
		}
		var users []ws.MemberPayload
		if err := c.NextOf(ctx, ws.RoomUsersType, &users); err != nil {
			return exitRuntime, fmt.Errorf("user %d never joined: %w", i, err)
		}
		clients[i] = c
	}
	log.Info("Users joined", "room", config.Room, "users", config.Users)

	// 4. Everyone sends and reads concurrently.
	expected := int64(config.Users * config.Messages)
	var received atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			lang := config.Languages[i%len(config.Languages)]
			for m := 0; m < config.Messages; m++ {
				if err := c.Send(gctx, config.Room, fmt.Sprintf("message %d from user %d", m, i), lang); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for n := int64(0); n < expected; n++ {
				var msg ws.MessageReceivedPayload
				if err := c.NextOf(gctx, ws.MessageReceivedType, &msg); err != nil {
					return fmt.Errorf("user %d got %d/%d messages: %w", i, n, expected, err)
				}
				received.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}

	elapsed := time.Since(start)
	color.Success.Printf("%d deliveries in %s (%.0f/s)\n",
		received.Load(), elapsed.Round(time.Millisecond), float64(received.Load())/elapsed.Seconds())
	return exitOK, nil
}
