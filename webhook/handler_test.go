package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/store/memory"
	"github.com/phamhp/napstore/webhook"
)

func setup(t *testing.T) (*napstore.Engine, *httptest.Server) {
	t.Helper()

	eng := napstore.New(memory.New())
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	srv := httptest.NewServer(webhook.NewHandler(eng).Router())
	t.Cleanup(srv.Close)

	return eng, srv
}

func post(t *testing.T, srv *httptest.Server, body string) (int, map[string]any) {
	t.Helper()

	resp, err := http.Post(srv.URL+"/hooks/transfer", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestTransferWebhook(t *testing.T) {
	ctx := context.Background()
	eng, srv := setup(t)

	u, err := eng.CreateUser(ctx, "hook@example.com", "Hook")
	if err != nil {
		t.Fatal(err)
	}
	d, err := eng.CreateDeposit(ctx, u.ID, 200000)
	if err != nil {
		t.Fatal(err)
	}

	payload := fmt.Sprintf(`{
		"referenceCode": "FT0001",
		"transferType": "in",
		"transferAmount": 200000,
		"content": "ck %s"
	}`, d.OrderID)

	t.Run("SettlesDeposit", func(t *testing.T) {
		status, body := post(t, srv, payload)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["outcome"] != "settled" {
			t.Errorf("outcome = %v, want settled", body["outcome"])
		}
		if body["order_id"] != d.OrderID {
			t.Errorf("order_id = %v, want %s", body["order_id"], d.OrderID)
		}
		if amount, _ := body["amount"].(float64); int64(amount) != 200000 {
			t.Errorf("amount = %v, want 200000", body["amount"])
		}

		balance, err := eng.Balance(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		if balance.Amount != 200000 {
			t.Errorf("balance = %d, want 200000", balance.Amount)
		}
	})

	t.Run("RedeliveryAcknowledged", func(t *testing.T) {
		status, body := post(t, srv, payload)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200 on redelivery", status)
		}
		if body["outcome"] != "already_processed" {
			t.Errorf("outcome = %v, want already_processed", body["outcome"])
		}

		balance, _ := eng.Balance(ctx, u.ID)
		if balance.Amount != 200000 {
			t.Errorf("redelivery changed balance to %d", balance.Amount)
		}
	})

	t.Run("OutgoingAcknowledged", func(t *testing.T) {
		status, body := post(t, srv, `{"transferType":"out","transferAmount":5000,"content":"NAPX1"}`)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["outcome"] != "ignored_outgoing" {
			t.Errorf("outcome = %v, want ignored_outgoing", body["outcome"])
		}
	})

	t.Run("NoReferenceAcknowledged", func(t *testing.T) {
		status, body := post(t, srv, `{"transferType":"in","transferAmount":5000,"content":"tien an"}`)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["outcome"] != "no_order_id" {
			t.Errorf("outcome = %v, want no_order_id", body["outcome"])
		}
	})

	t.Run("UnmatchedAcknowledged", func(t *testing.T) {
		status, body := post(t, srv, `{"transferType":"in","transferAmount":5000,"content":"NAPDOESNOTEXIST"}`)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["outcome"] != "unmatched" {
			t.Errorf("outcome = %v, want unmatched", body["outcome"])
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		status, body := post(t, srv, `{"transferType":`)
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", status)
		}
		if body["error"] != "invalid payload" {
			t.Errorf("error = %v", body["error"])
		}
	})

	t.Run("GetRefused", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/hooks/transfer")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})
}

func TestHealth(t *testing.T) {
	_, srv := setup(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestWebhookReceivedHook(t *testing.T) {
	eng, srv := setup(t)

	received := &captureHook{}
	if err := eng.Plugins().Register(received); err != nil {
		t.Fatal(err)
	}

	post(t, srv, `{"transferType":"in","transferAmount":5000,"content":"tien an"}`)

	if received.gateway != "sepay" {
		t.Errorf("gateway = %q, want sepay", received.gateway)
	}
	if len(received.payload) == 0 {
		t.Error("payload not forwarded to hook")
	}
}

type captureHook struct {
	gateway string
	payload []byte
}

func (c *captureHook) Name() string { return "capture" }

func (c *captureHook) OnWebhookReceived(_ context.Context, gateway string, payload []byte) error {
	c.gateway = gateway
	c.payload = payload
	return nil
}
