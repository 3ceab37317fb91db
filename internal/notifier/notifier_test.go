package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"BoostIQ/internal/model"
)

// fakeTelegram records sendMessage payloads and serves queued getUpdates replies.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]interface{}
	failures int
	updates  []string
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures > 0 {
				f.failures--
				http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
				return
			}
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			f.sent = append(f.sent, payload)
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if len(f.updates) == 0 {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			next := f.updates[0]
			f.updates = f.updates[1:]
			w.Write([]byte(next))
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeTelegram) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.sent {
		out = append(out, p["text"].(string))
	}
	return out
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	n.RetryBase = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0]["chat_id"] != "42" || fake.sent[0]["parse_mode"] != "HTML" {
		t.Errorf("payload = %+v", fake.sent)
	}
}

func TestSendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 2}
	n := newTestNotifier(t, fake)

	if err := n.SendWithRetry(context.Background(), "hello", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if got := fake.sentTexts(); len(got) != 1 {
		t.Errorf("sent %d messages, want 1", len(got))
	}

	fake.failures = 10
	if err := n.SendWithRetry(context.Background(), "hello", 2); err == nil {
		t.Errorf("expected error after retries exhausted")
	}
}

func TestStartPolling(t *testing.T) {
	fake := &fakeTelegram{updates: []string{
		`{"ok":true,"result":[
			{"update_id":7,"message":{"text":" /alerts ","chat":{"id":42}}},
			{"update_id":8,"message":{"text":"/top","chat":{"id":99}}}
		]}`,
	}}
	n := newTestNotifier(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got <- cmd
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case cmd := <-got:
		if cmd != "/alerts" {
			t.Errorf("command = %q, want /alerts", cmd)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(fake.sentTexts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if texts := fake.sentTexts(); len(texts) != 1 || texts[0] != "reply to /alerts" {
		t.Errorf("replies = %v", texts)
	}
	select {
	case cmd := <-got:
		t.Errorf("command from foreign chat was handled: %q", cmd)
	default:
	}
}

func TestFormatCandidates(t *testing.T) {
	empty := FormatCandidates("Explosion candidates", nil)
	if !strings.Contains(empty, "No symbols") {
		t.Errorf("empty list message = %q", empty)
	}

	msg := FormatCandidates("Explosion candidates", []model.Candidate{{
		Symbol:                "AUSDT",
		Price:                 0.00012345,
		PriceChangePercent24h: 12.5,
		Score:                 model.CompositeScore{Score: 81},
		Recommendation:        model.Recommendation{Action: "STRONG_BUY", Confidence: "VERY_HIGH", SellTarget: 0.00015431, StopLoss: 0.00011728},
	}})
	for _, want := range []string{"1. <b>AUSDT</b>", "score 81", "STRONG_BUY", "0.00012345", "+12.50%"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAnalysis(t *testing.T) {
	msg := FormatAnalysis(model.Candidate{
		Symbol: "FOOUSDT",
		Price:  1,
		Indicators: model.IndicatorSet{
			RSI: 55, VolumeRatio: 3, IsCompressed: true, Degraded: []string{"rsi"},
		},
		Score: model.CompositeScore{Profile: "explosion", Score: 29, Factors: []model.FactorScore{
			{Name: "change_5m", Input: 5, Normalized: 20, Weight: 0.35, Weighted: 7},
		}},
		Recommendation: model.Recommendation{Action: "AVOID", Confidence: "LOW", BuyPrice: 1, SellTarget: 1.05, StopLoss: 0.97},
	})
	for _, want := range []string{"FOOUSDT", "change_5m", "Score: 29", "AVOID", "target 1.05", "compressed", "defaulted: rsi"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100"},
		{1.25, "1.25"},
		{0.00001234, "0.00001234"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.in); got != tt.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatListings(t *testing.T) {
	msg := FormatListings([]model.Listing{{Symbol: "NEWUSDT", OnboardDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()}, {Symbol: "UNKUSDT"}})
	if !strings.Contains(msg, "NEWUSDT (listed 2024-06-01)") || !strings.Contains(msg, "UNKUSDT (listed unknown)") {
		t.Errorf("listings message:\n%s", msg)
	}
}
