package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

const DefaultAlpacaURL = "https://paper-api.alpaca.markets"

// Alpaca talks to the Alpaca trading REST API
type Alpaca struct {
	BaseURL string
	KeyID   string
	Secret  string
	Client  *http.Client
}

func NewAlpaca(baseURL, keyID, secret string) *Alpaca {
	if baseURL == "" {
		baseURL = DefaultAlpacaURL
	}
	return &Alpaca{BaseURL: baseURL, KeyID: keyID, Secret: secret, Client: &http.Client{Timeout: 15 * time.Second}}
}

type alpacaAccount struct {
	Status         string          `json:"status"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	TradingBlocked bool            `json:"trading_blocked"`
}

type alpacaOrderRequest struct {
	Symbol        string             `json:"symbol"`
	Qty           string             `json:"qty"`
	Side          engine.TradeSide   `json:"side"`
	Type          engine.OrderType   `json:"type"`
	TimeInForce   engine.TimeInForce `json:"time_in_force"`
	ClientOrderID string             `json:"client_order_id"`
}

type alpacaOrder struct {
	ID            string           `json:"id"`
	ClientOrderID string           `json:"client_order_id"`
	Symbol        string           `json:"symbol"`
	Side          engine.TradeSide `json:"side"`
	Qty           decimal.Decimal  `json:"qty"`
	Status        string           `json:"status"`
	SubmittedAt   time.Time        `json:"submitted_at"`
}

type alpacaError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Alpaca) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", a.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr alpacaError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrRejected, apiErr.Message)
		default:
			return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, apiErr.Message)
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Alpaca) account(ctx context.Context) (alpacaAccount, error) {
	var acct alpacaAccount
	err := a.do(ctx, http.MethodGet, "/v2/account", nil, &acct)
	return acct, err
}

func (a *Alpaca) BuyingPower(ctx context.Context) (float64, error) {
	acct, err := a.account(ctx)
	if err != nil {
		return 0, err
	}
	if acct.TradingBlocked {
		return 0, ErrTradingBlocked
	}
	return acct.BuyingPower.InexactFloat64(), nil
}

func (a *Alpaca) Submit(ctx context.Context, order engine.Order) (Fill, error) {
	if order.ClientID == "" {
		order.ClientID = uuid.NewString()
	}
	req := alpacaOrderRequest{
		Symbol:        order.Symbol,
		Qty:           decimal.NewFromFloat(order.Quantity).String(),
		Side:          order.Side,
		Type:          order.Type,
		TimeInForce:   order.TimeInForce,
		ClientOrderID: order.ClientID,
	}
	var resp alpacaOrder
	if err := a.do(ctx, http.MethodPost, "/v2/orders", req, &resp); err != nil {
		return Fill{}, fmt.Errorf("submit %s %s: %w", order.Side, order.Symbol, err)
	}
	return Fill{
		OrderID:     resp.ID,
		ClientID:    resp.ClientOrderID,
		Symbol:      resp.Symbol,
		Side:        resp.Side,
		Quantity:    resp.Qty.InexactFloat64(),
		Status:      resp.Status,
		SubmittedAt: resp.SubmittedAt,
	}, nil
}

// Ping checks credentials and connectivity
func (a *Alpaca) Ping(ctx context.Context) error {
	_, err := a.account(ctx)
	return err
}
