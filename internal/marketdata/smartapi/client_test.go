package smartapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP" // valid base32, test-only

const loginOK = `{"status":true,"message":"SUCCESS","data":{"jwtToken":"test-jwt"}}`

// candlesOK is the broker's real row shape: an RFC3339 timestamp string
// followed by five numbers.
const candlesOK = `{"status":true,"message":"SUCCESS","data":[
	["2024-01-15T10:30:00+05:30",2501.5,2510.0,2498.25,2505.75,125000],
	["2024-01-15T11:30:00+05:30",2505.75,2512.0,2503.0,2509.5,98000]
]}`

type fakeBroker struct {
	logins  int
	candles string
	status  int // non-zero overrides the candles response code
}

func (b *fakeBroker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(loginRoute, func(w http.ResponseWriter, r *http.Request) {
		b.logins++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(loginOK))
	})
	mux.HandleFunc(candlesRoute, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if b.status != 0 {
			w.WriteHeader(b.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(b.candles))
	})
	return mux
}

func testClient(t *testing.T, broker *fakeBroker) *Client {
	t.Helper()
	srv := httptest.NewServer(broker.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:     "key",
		ClientCode: "C123",
		Password:   "pw",
		TOTPSecret: testTOTPSecret,
		RootURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestBars_DecodesCandleRows(t *testing.T) {
	c := testClient(t, &fakeBroker{candles: candlesOK})

	bars, err := c.Bars(context.Background(), "NSE:3045", "1h", 10)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	first := bars[0]
	wantTS := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC) // 10:30 IST
	if !first.TS.Equal(wantTS) {
		t.Errorf("ts = %v, want %v", first.TS, wantTS)
	}
	if first.Open != 2501.5 || first.High != 2510.0 || first.Low != 2498.25 || first.Close != 2505.75 {
		t.Errorf("prices mismatch: %+v", first)
	}
	if first.Volume != 125000 {
		t.Errorf("volume = %v, want 125000", first.Volume)
	}
	if !bars[1].TS.After(bars[0].TS) {
		t.Error("bars not ascending by timestamp")
	}
}

func TestBars_TruncatesToLimit(t *testing.T) {
	c := testClient(t, &fakeBroker{candles: candlesOK})

	bars, err := c.Bars(context.Background(), "NSE:3045", "1h", 1)
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar after truncation, got %d", len(bars))
	}
	// The newest bar survives.
	if bars[0].Close != 2509.5 {
		t.Errorf("expected newest bar, got close %v", bars[0].Close)
	}
}

func TestBars_MalformedRow(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"short row", `{"status":true,"data":[["2024-01-15T10:30:00+05:30",2501.5,2510.0]]}`},
		{"numeric timestamp", `{"status":true,"data":[[1705293000000,2501.5,2510.0,2498.25,2505.75,125000]]}`},
		{"string price", `{"status":true,"data":[["2024-01-15T10:30:00+05:30","2501.5",2510.0,2498.25,2505.75,125000]]}`},
	}
	for _, tc := range cases {
		c := testClient(t, &fakeBroker{candles: tc.body})
		if _, err := c.Bars(context.Background(), "NSE:3045", "1h", 10); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}

func TestBars_RejectedResponse(t *testing.T) {
	c := testClient(t, &fakeBroker{candles: `{"status":false,"message":"AB1004 Something Went Wrong"}`})

	_, err := c.Bars(context.Background(), "NSE:3045", "1h", 10)
	if err == nil || !strings.Contains(err.Error(), "AB1004") {
		t.Errorf("expected broker message in error, got %v", err)
	}
}

func TestBars_SessionReuse(t *testing.T) {
	broker := &fakeBroker{candles: candlesOK}
	c := testClient(t, broker)
	ctx := context.Background()

	if _, err := c.Bars(ctx, "NSE:3045", "1h", 10); err != nil {
		t.Fatalf("first bars: %v", err)
	}
	if _, err := c.Bars(ctx, "NSE:3045", "1h", 10); err != nil {
		t.Fatalf("second bars: %v", err)
	}
	if broker.logins != 1 {
		t.Errorf("expected one login for two fetches, got %d", broker.logins)
	}
}

func TestBars_RelogsInAfterRejection(t *testing.T) {
	broker := &fakeBroker{candles: candlesOK}
	c := testClient(t, broker)
	ctx := context.Background()

	if _, err := c.Bars(ctx, "NSE:3045", "1h", 10); err != nil {
		t.Fatalf("first bars: %v", err)
	}

	broker.status = http.StatusUnauthorized
	if _, err := c.Bars(ctx, "NSE:3045", "1h", 10); err == nil {
		t.Fatal("expected error on rejected session")
	}

	broker.status = 0
	if _, err := c.Bars(ctx, "NSE:3045", "1h", 10); err != nil {
		t.Fatalf("bars after re-login: %v", err)
	}
	if broker.logins != 2 {
		t.Errorf("expected a second login after rejection, got %d", broker.logins)
	}
}

func TestBars_InputValidation(t *testing.T) {
	c := testClient(t, &fakeBroker{candles: candlesOK})
	ctx := context.Background()

	if _, err := c.Bars(ctx, "RELIANCE", "1h", 10); err == nil {
		t.Error("expected error for pair without exchange prefix")
	}
	if _, err := c.Bars(ctx, "NSE:3045", "2w", 10); err == nil {
		t.Error("expected error for unsupported timeframe")
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{APIKey: "key", ClientCode: "C123"})
	if err == nil {
		t.Error("expected error for incomplete credentials")
	}
}

func TestParseCandle_Fields(t *testing.T) {
	row := make([]json.RawMessage, 6)
	for i, s := range []string{`"2024-01-15T10:30:00+05:30"`, "1.5", "2.5", "0.5", "2.0", "42"} {
		row[i] = json.RawMessage(s)
	}
	bar, err := parseCandle(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bar.Open != 1.5 || bar.High != 2.5 || bar.Low != 0.5 || bar.Close != 2.0 || bar.Volume != 42 {
		t.Errorf("unexpected bar: %+v", bar)
	}
	if bar.TS.Location() != time.UTC {
		t.Errorf("timestamp not normalized to UTC: %v", bar.TS)
	}
}
