package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestSnapshotTracksCounters(t *testing.T) {
	before := Current()

	RecordTick()
	RecordConnectAttempt(false)
	RecordConnectAttempt(true)
	RecordWrite(true)
	RecordWrite(false)
	RecordBytesRead(5)
	RecordBytesRead(-1)
	SetConnected(true)
	SetCursor(3, true, 12)

	after := Current()
	if after.Ticks != before.Ticks+1 {
		t.Errorf("Ticks = %d, want %d", after.Ticks, before.Ticks+1)
	}
	if after.ConnectAttempts != before.ConnectAttempts+2 {
		t.Errorf("ConnectAttempts = %d, want %d", after.ConnectAttempts, before.ConnectAttempts+2)
	}
	if after.ConnectFailures != before.ConnectFailures+1 {
		t.Errorf("ConnectFailures = %d, want %d", after.ConnectFailures, before.ConnectFailures+1)
	}
	if after.WriteFailures != before.WriteFailures+1 {
		t.Errorf("WriteFailures = %d, want %d", after.WriteFailures, before.WriteFailures+1)
	}
	if after.BytesRead != before.BytesRead+5 {
		t.Errorf("BytesRead = %d, want %d", after.BytesRead, before.BytesRead+5)
	}
	if !after.Connected || !after.Running || after.Frame != 3 || after.PatternFrames != 12 {
		t.Errorf("unexpected state snapshot: %+v", after)
	}
}

func TestSnapshotConcurrentAccess(_ *testing.T) {
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				RecordTick()
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = Current()
			}
		}()
	}
	wg.Wait()
}

func TestHandlerExposesLightnodeMetrics(t *testing.T) {
	RecordDirective("start")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "lightnode_heart_directives_total") {
		t.Error("expected lightnode_heart_directives_total in exposition")
	}
}
