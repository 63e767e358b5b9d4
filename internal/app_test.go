package internal

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host:                      "localhost",
		Port:                      3001,
		FanoutWorkers:             4,
		ConnectionBufferSize:      16,
		CommandBufferSize:         16,
		DeliveryTimeout:           time.Second,
		TranslationProvider:       "none",
		TranslationTimeout:        time.Second,
		ModerationCharReplacement: "*",
		MetricInterval:            time.Minute,
		RestartInterval:           10 * time.Millisecond,
	}
}

func TestApp_Serves_Admin_Routes(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given an app without translation provider
	config := testConfig()
	req.NoError(config.Validate())
	app, err := NewApp(log, config)
	req.NoError(err)
	defer func() { req.NoError(app.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Run(ctx)
	server := httptest.NewServer(app.Handler(ctx))
	defer server.Close()

	// When the health endpoint is hit
	resp, err := http.Get(server.URL + "/api/health")

	// Then it answers
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Zero(app.ChatService().Stats().TotalRooms)
}

func TestLoadCensor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	words := fstest.MapFS{
		"en.txt": {Data: []byte("# english\nidiot\n")},
		"fr.txt": {Data: []byte("crétin\n")},
	}

	censor, err := loadCensor(log, words, "#")
	req.NoError(err)
	censored, found := censor.Censor("you idiot")
	req.Equal("you #####", censored)
	req.Contains(found, "idiot")

	_, err = loadCensor(log, fstest.MapFS{}, "*")
	req.Error(err)
}
