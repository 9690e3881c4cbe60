package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printhost/internal/coordinator"
)

// wirePayload keeps data as the raw bytes that went over the wire, so the
// signature can be checked against exactly what the sender signed.
type wirePayload struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature,omitempty"`
}

type received struct {
	event     string
	signature string
	payload   wirePayload
}

type captureServer struct {
	*httptest.Server
	mu   sync.Mutex
	got  []received
	code int
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{code: http.StatusOK}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p wirePayload
		_ = json.Unmarshal(body, &p)

		cs.mu.Lock()
		cs.got = append(cs.got, received{
			event:     r.Header.Get("X-Webhook-Event"),
			signature: r.Header.Get("X-Webhook-Signature"),
			payload:   p,
		})
		code := cs.code
		cs.mu.Unlock()

		w.WriteHeader(code)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) received() []received {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]received(nil), cs.got...)
}

func newTestSender(t *testing.T, endpoints ...Endpoint) *Sender {
	t.Helper()
	s := NewSender(Config{
		Endpoints:  endpoints,
		RetryCount: 2,
		RetryDelay: 10 * time.Millisecond,
		Timeout:    time.Second,
	})
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func sampleResult(success bool) coordinator.Result {
	return coordinator.Result{
		JobID:         uuid.New(),
		Cookie:        3,
		DeviceName:    "lp0",
		SourceName:    "report",
		ExpectedPages: 2,
		RenderedPages: 2,
		Success:       success,
		StartedAt:     time.Now().Add(-time.Second),
		FinishedAt:    time.Now(),
	}
}

func TestSenderDeliversPrintStarted(t *testing.T) {
	srv := newCaptureServer(t)
	s := newTestSender(t, Endpoint{Name: "all", URL: srv.URL})

	s.PrintStarted("lp0", "report")

	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := srv.received()[0]
	assert.Equal(t, string(EventPrintStarted), got.event)
	assert.Equal(t, string(EventPrintStarted), got.payload.Event)
	assert.Empty(t, got.signature, "no secret configured")
}

func TestSenderRoutesResultByOutcome(t *testing.T) {
	srv := newCaptureServer(t)
	s := newTestSender(t, Endpoint{Name: "all", URL: srv.URL})

	s.PrintFinished(sampleResult(true))
	s.PrintFinished(sampleResult(false))

	require.Eventually(t, func() bool {
		return len(srv.received()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	events := map[string]bool{}
	for _, r := range srv.received() {
		events[r.event] = true
	}
	assert.True(t, events[string(EventPrintCompleted)])
	assert.True(t, events[string(EventPrintFailed)])
}

func TestSenderSignsPayload(t *testing.T) {
	srv := newCaptureServer(t)
	s := newTestSender(t, Endpoint{Name: "signed", URL: srv.URL, Secret: "s3cret"})

	res := sampleResult(true)
	s.PrintFinished(res)

	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := srv.received()[0]
	require.NotEmpty(t, got.signature)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(got.payload.Data)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got.signature)
	assert.Equal(t, got.signature, got.payload.Signature)
}

func TestSenderFiltersByEventSubscription(t *testing.T) {
	srv := newCaptureServer(t)
	s := newTestSender(t, Endpoint{
		Name:   "failures-only",
		URL:    srv.URL,
		Events: []string{string(EventPrintFailed)},
	})

	s.PrintFinished(sampleResult(true))
	s.PrintFinished(sampleResult(false))

	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	got := srv.received()
	require.Len(t, got, 1)
	assert.Equal(t, string(EventPrintFailed), got[0].event)
}

func TestSenderRetriesServerErrors(t *testing.T) {
	srv := newCaptureServer(t)
	srv.mu.Lock()
	srv.code = http.StatusInternalServerError
	srv.mu.Unlock()

	s := newTestSender(t, Endpoint{Name: "flaky", URL: srv.URL})
	s.PrintStarted("lp0", "report")

	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	srv.mu.Lock()
	srv.code = http.StatusOK
	srv.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(srv.received()) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSenderDoesNotRetryClientErrors(t *testing.T) {
	srv := newCaptureServer(t)
	srv.mu.Lock()
	srv.code = http.StatusBadRequest
	srv.mu.Unlock()

	s := newTestSender(t, Endpoint{Name: "reject", URL: srv.URL})
	s.PrintStarted("lp0", "report")

	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, srv.received(), 1)
}

func TestSubscribed(t *testing.T) {
	assert.True(t, subscribed(Endpoint{}, EventPrintStarted), "empty list means all events")
	assert.True(t, subscribed(Endpoint{Events: []string{"print_started"}}, EventPrintStarted))
	assert.False(t, subscribed(Endpoint{Events: []string{"print_failed"}}, EventPrintStarted))
}
