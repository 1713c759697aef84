package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDisabledNotifierIsNoop(t *testing.T) {
	n := NewSlackNotifier("")

	if n.IsEnabled() {
		t.Error("IsEnabled() should be false with empty URL")
	}
	// None of these may panic or make network calls.
	n.Startup("btc-updown", true)
	n.TradeAlert("btc-updown", "BUY", "market", 96.4, 10, 0, "sim-1")
	n.Shutdown(2, 1.25)
}

func TestTradeAlertPayload(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	n.TradeAlert("btc-updown", "SELL", "market", 98.5, 10, 0.22, "ord-1")

	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}
	att := got.Attachments[0]
	if att.Color != colorGreen {
		t.Errorf("color = %s, want green for positive profit", att.Color)
	}
	var hasProfit bool
	for _, f := range att.Fields {
		if f.Title == "Profit" && f.Value == "$0.22" {
			hasProfit = true
		}
	}
	if !hasProfit {
		t.Error("sell alert should carry a Profit field")
	}
}

func TestSendFailureDoesNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	// Must not panic; errors are swallowed and logged.
	n.Shutdown(0, 0)
}
