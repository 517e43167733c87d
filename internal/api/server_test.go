package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/lightnode/internal/api/models"
	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/smazurov/lightnode/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authHeader = "Authorization: Basic dGVzdDp0ZXN0" // test:test

type recordingSender struct {
	mu         sync.Mutex
	directives []heart.Directive
	err        error
}

func (r *recordingSender) Send(_ context.Context, d heart.Directive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.directives = append(r.directives, d)
	return nil
}

func (r *recordingSender) sent() []heart.Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]heart.Directive(nil), r.directives...)
}

type fixture struct {
	server *Server
	api    humatest.TestAPI
	sender *recordingSender
	store  *pattern.Store
	bus    *events.Bus
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := pattern.NewStore(t.TempDir(), pattern.NewChannelRange(0, 2), logger)
	require.NoError(t, err)

	sender := &recordingSender{}
	bus := events.New()
	opts := &Options{
		AuthUsername: "test",
		AuthPassword: "test",
		Control:      sender,
		Patterns:     store,
		EventBus:     bus,
		Device:       device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
	}
	for _, m := range mutate {
		m(opts)
	}

	server := NewServer(opts)
	t.Cleanup(func() { server.Stop() })

	return &fixture{
		server: server,
		api:    humatest.Wrap(t, server.GetAPI()),
		sender: sender,
		store:  store,
		bus:    bus,
	}
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Get("/api/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decode[models.HealthData](t, resp.Body).Status)

	resp = f.api.Get("/api/version")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/lights/control", map[string]any{"mode": "on"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Header().Get("WWW-Authenticate"), "Lightnode API")

	wrong := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("test:nope"))
	resp = f.api.Post("/api/lights/control", wrong, map[string]any{"mode": "on"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.api.Post("/api/lights/control", "Authorization: Bearer token", map[string]any{"mode": "on"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	assert.Empty(t, f.sender.sent())
}

func TestAuthDisabledWithoutCredentials(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.AuthUsername, o.AuthPassword = "", "" })

	resp := f.api.Post("/api/lights/control", map[string]any{"mode": "off"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []heart.Directive{heart.Stop()}, f.sender.sent())
}

func TestControlModes(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want heart.Directive
	}{
		{"off", map[string]any{"mode": "off"}, heart.Stop()},
		{"on", map[string]any{"mode": "on"}, heart.Start()},
		{"load", map[string]any{"mode": "load", "pattern": "rainbow.txt"}, heart.Load("rainbow.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			resp := f.api.Post("/api/lights/control", authHeader, tt.body)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			assert.Equal(t, tt.want.String(), decode[models.DirectiveData](t, resp.Body).Directive)
			assert.Equal(t, []heart.Directive{tt.want}, f.sender.sent())
		})
	}
}

func TestControlRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/lights/control", authHeader, map[string]any{"mode": "load"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.api.Post("/api/lights/control", authHeader, map[string]any{"mode": "blink"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	assert.Empty(t, f.sender.sent())
}

func TestStateAndColorShowCommands(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.api.Post("/api/lights/state", authHeader, map[string]any{"on": true}).Code)
	require.Equal(t, http.StatusOK, f.api.Post("/api/lights/state", authHeader, map[string]any{"on": false}).Code)
	require.Equal(t, http.StatusOK, f.api.Post("/api/lights/color", authHeader, map[string]any{"color": "green"}).Code)
	require.Equal(t, http.StatusOK, f.api.Post("/api/lights/reconnect", authHeader).Code)

	assert.Equal(t, []heart.Directive{
		heart.Show(device.On()),
		heart.Show(device.Off()),
		heart.Show(device.Basic(device.Green)),
		heart.Reconnect(),
	}, f.sender.sent())

	resp := f.api.Post("/api/lights/color", authHeader, map[string]any{"color": "purple"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestFullMailboxIsUnavailable(t *testing.T) {
	control := heart.NewControl(1)
	require.NoError(t, control.TrySend(heart.Start()))

	f := newFixture(t, func(o *Options) {
		o.Control = control
		o.SendTimeout = 20 * time.Millisecond
	})

	resp := f.api.Post("/api/lights/control", authHeader, map[string]any{"mode": "off"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestWritePattern(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/patterns", authHeader, map[string]any{
		"frames": []map[string]any{
			{"colors": []map[string]any{{"hex": "#ff0000", "channel": 0}, {"hex": "nothex", "channel": 1}}},
			{"colors": []map[string]any{{"hex": "00ff00", "channel": 2}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	data := decode[models.WritePatternData](t, resp.Body)
	assert.Equal(t, 2, data.Frames)
	assert.Equal(t, 1, data.Skipped)
	assert.True(t, data.Loaded)
	assert.Regexp(t, `^[0-9a-f-]{36}\.txt$`, data.Name)

	assert.Equal(t, []heart.Directive{heart.Load(data.Name)}, f.sender.sent())

	p, err := f.store.Load(data.Name)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	c, ok := p.Color(0, 0)
	require.True(t, ok)
	assert.Equal(t, pattern.RGB(255, 0, 0), c)
	c, ok = p.Color(0, 1)
	require.True(t, ok)
	assert.Equal(t, pattern.Black, c)
	c, ok = p.Color(1, 2)
	require.True(t, ok)
	assert.Equal(t, pattern.RGB(0, 255, 0), c)

	resp = f.api.Get("/api/patterns", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[models.PatternListData](t, resp.Body)
	assert.Equal(t, []string{data.Name}, list.Patterns)
	assert.Equal(t, 1, list.Count)
}

func TestWritePatternWithoutLoad(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/patterns", authHeader, map[string]any{
		"frames": []map[string]any{{"colors": []map[string]any{{"hex": "#0000ff", "channel": 0}}}},
		"load":   false,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[models.WritePatternData](t, resp.Body).Loaded)
	assert.Empty(t, f.sender.sent())
}

func TestWritePatternRejectsAllInvalid(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/patterns", authHeader, map[string]any{
		"frames": []map[string]any{{"colors": []map[string]any{{"hex": "zzz", "channel": 0}}}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	names, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBuildPatternTruncates(t *testing.T) {
	f := newFixture(t)

	frames := make([]models.PatternFrame, 300)
	for i := range frames {
		frames[i] = models.PatternFrame{Colors: []models.PatternColor{{Hex: "#010101", Channel: 0}}}
	}

	p, skipped := f.server.buildPattern(frames)
	assert.Equal(t, MaxWrittenFrames, p.Len())
	assert.Zero(t, skipped)
}

func TestStatusFollowsEvents(t *testing.T) {
	f := newFixture(t)

	status := f.server.Status()
	assert.Equal(t, device.KindSerial, status.Device.Kind)
	assert.Equal(t, "/dev/ttyACM0", status.Device.Device)
	assert.False(t, status.Device.Connected)

	f.bus.Publish(events.CursorStateEvent{Running: true, Frame: 2, Frames: 5, Pattern: "init.txt"})
	f.bus.Publish(events.DeviceStateEvent{Kind: "serial", Device: "/dev/ttyACM0", Connected: true})
	f.bus.Publish(events.PatternLoadedEvent{Name: "init.txt", Frames: 5})

	require.Eventually(t, func() bool {
		s := f.server.Status()
		return s.Running && s.Device.Connected && s.LastLoad != nil
	}, time.Second, 10*time.Millisecond)

	resp := f.api.Get("/api/lights/status", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[models.StatusData](t, resp.Body)
	assert.Equal(t, uint8(2), got.Frame)
	assert.Equal(t, 5, got.Frames)
	assert.Equal(t, "init.txt", got.Pattern)
	assert.Equal(t, 5, got.LastLoad.Frames)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, "/api/lights/control", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	f.server.GetMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
