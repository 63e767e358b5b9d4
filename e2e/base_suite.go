package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"polychat/client"
	"polychat/internal"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseChatSuite runs scenarios against a chat server backed by a fake LibreTranslate.
// The provider prefixes translations with the target language: "[fr] hello".
type BaseChatSuite struct {
	suite.Suite
	Config Config

	provider     *httptest.Server
	providerDown atomic.Bool
	server       *httptest.Server
	app          *internal.App
	cancel       context.CancelFunc
}

func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL != "" {
		return
	}

	s.provider = httptest.NewServer(http.HandlerFunc(s.fakeLibreTranslate))
	config := internal.Config{
		Host:                      "localhost",
		Port:                      3001,
		FanoutWorkers:             8,
		ConnectionBufferSize:      64,
		CommandBufferSize:         32,
		DeliveryTimeout:           time.Second,
		WriteTimeout:              time.Second,
		TranslationProvider:       "libre",
		LibreTranslateURL:         s.provider.URL,
		TranslationTimeout:        500 * time.Millisecond,
		ModerationCharReplacement: "*",
		MetricInterval:            time.Minute,
		RestartInterval:           10 * time.Millisecond,
	}
	s.Require().NoError(config.Validate())

	s.app, err = internal.NewApp(logs.GetLoggerFromLevel(slog.LevelWarn), config)
	s.Require().NoError(err)

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	go s.app.Run(ctx)
	s.server = httptest.NewServer(s.app.Handler(ctx))
	s.Config.ServerURL = s.server.URL
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.server == nil {
		return
	}
	s.cancel()
	s.server.Close()
	s.provider.Close()
	s.Require().NoError(s.app.Close())
}

// InProcess reports whether the suite owns the server, and thus the fake provider.
func (s *BaseChatSuite) InProcess() bool {
	return s.app != nil
}

func (s *BaseChatSuite) SetProviderDown(down bool) {
	s.providerDown.Store(down)
}

func (s *BaseChatSuite) fakeLibreTranslate(w http.ResponseWriter, r *http.Request) {
	if s.providerDown.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	switch r.URL.Path {
	case "/translate":
		var body struct {
			Q      string `json:"q"`
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"translatedText": fmt.Sprintf("[%s] %s", body.Target, body.Q),
		})
	case "/languages":
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"code": "en", "name": "English"},
			{"code": "fr", "name": "French"},
		})
	default:
		http.NotFound(w, r)
	}
}

// Step prints a colorized header then runs fn with a bounded context.
func (s *BaseChatSuite) Step(name string, fn func(ctx context.Context)) {
	s.T().Helper()
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fn(ctx)
}

// Connect dials the websocket endpoint; the connection is closed with the test.
func (s *BaseChatSuite) Connect(ctx context.Context, t *testing.T) *client.Client {
	url := "ws" + strings.TrimPrefix(s.Config.ServerURL, "http") + "/ws"
	c, err := client.Dial(ctx, url, nil)
	s.Require().NoError(err, "Failed to connect to chat server at "+url)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Expect waits for the next envelope of msgType and decodes it.
func Expect[T any](s *BaseChatSuite, ctx context.Context, c *client.Client, msgType string) T {
	s.T().Helper()
	var payload T
	s.Require().NoError(c.NextOf(ctx, msgType, &payload), "no %s received", msgType)
	if s.Config.DebugJSON {
		raw, _ := json.MarshalIndent(payload, "", "  ")
		s.T().Logf("%s:\n%s", msgType, raw)
	}
	return payload
}

// AdminGet queries the admin API and decodes the JSON body.
func (s *BaseChatSuite) AdminGet(ctx context.Context, path string, dst any) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Config.ServerURL+path, nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}
