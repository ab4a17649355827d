package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

func order(qty float64) engine.Order {
	return engine.Order{Symbol: "AAPL", Side: engine.TradeSideBuy, Quantity: qty, Type: engine.OrderMarket, TimeInForce: engine.TIFDay}
}

func TestPaperBroker(t *testing.T) {
	p := NewPaper(1000)
	bp, err := p.BuyingPower(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bp)

	fill, err := p.Submit(context.Background(), order(1.5))
	require.NoError(t, err)
	assert.NotEmpty(t, fill.OrderID)
	assert.NotEmpty(t, fill.ClientID)
	assert.Equal(t, "filled", fill.Status)
	assert.Len(t, p.Fills(), 1)

	_, err = p.Submit(context.Background(), order(0))
	assert.ErrorIs(t, err, ErrRejected)

	p.Reject = func(engine.Order) error { return errors.New("halted") }
	_, err = p.Submit(context.Background(), order(1))
	assert.ErrorContains(t, err, "halted")
	assert.Len(t, p.Fills(), 1)
}

func alpacaServer(t *testing.T, h http.HandlerFunc) *Alpaca {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewAlpaca(srv.URL, "id", "secret")
}

func TestAlpacaBuyingPower(t *testing.T) {
	a := alpacaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		w.Write([]byte(`{"status":"ACTIVE","buying_power":"25123.45","trading_blocked":false}`))
	})
	bp, err := a.BuyingPower(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25123.45, bp)
	assert.NoError(t, a.Ping(context.Background()))
}

func TestAlpacaTradingBlocked(t *testing.T) {
	a := alpacaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ACTIVE","buying_power":"100","trading_blocked":true}`))
	})
	_, err := a.BuyingPower(context.Background())
	assert.ErrorIs(t, err, ErrTradingBlocked)
}

func TestAlpacaSubmit(t *testing.T) {
	a := alpacaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "AAPL", body["symbol"])
		assert.Equal(t, "2.57", body["qty"])
		assert.Equal(t, "buy", body["side"])
		assert.Equal(t, "market", body["type"])
		assert.Equal(t, "day", body["time_in_force"])
		assert.NotEmpty(t, body["client_order_id"])
		w.Write([]byte(`{"id":"ord-1","client_order_id":"` + body["client_order_id"].(string) + `","symbol":"AAPL","side":"buy","qty":"2.57","status":"accepted","submitted_at":"2024-03-04T14:30:01Z"}`))
	})
	fill, err := a.Submit(context.Background(), order(2.57))
	require.NoError(t, err)
	assert.Equal(t, "ord-1", fill.OrderID)
	assert.Equal(t, 2.57, fill.Quantity)
	assert.Equal(t, "accepted", fill.Status)
}

func TestAlpacaRejection(t *testing.T) {
	a := alpacaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":40310000,"message":"insufficient buying power"}`))
	})
	_, err := a.Submit(context.Background(), order(1))
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "insufficient buying power")
}

func TestAlpacaServerError(t *testing.T) {
	a := alpacaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := a.Ping(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
