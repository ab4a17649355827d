package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tdServer(t *testing.T, status int, body string) *TwelveData {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1min", r.URL.Query().Get("interval"))
		assert.Equal(t, "1", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := NewTwelveData("key")
	c.BaseURL = srv.URL
	return c
}

func TestTwelveDataLatestBar(t *testing.T) {
	c := tdServer(t, http.StatusOK, `{"meta":{"symbol":"AAPL"},"values":[
		{"datetime":"2024-03-04 14:30:00","open":"175.1","high":"175.4","low":"174.9","close":"175.2","volume":"1200"}
	],"status":"ok"}`)
	b, err := c.LatestBar(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, t0, b.Timestamp)
	assert.Equal(t, 175.2, b.Close)
	assert.Equal(t, 174.9, b.Low)
}

func TestTwelveDataErrorClassification(t *testing.T) {
	_, err := tdServer(t, http.StatusTooManyRequests, ``).LatestBar(context.Background(), "AAPL")
	assert.True(t, IsTransient(err))

	_, err = tdServer(t, http.StatusBadGateway, ``).LatestBar(context.Background(), "AAPL")
	assert.True(t, IsTransient(err))

	_, err = tdServer(t, http.StatusOK, `{"status":"error","code":429,"message":"run out of credits"}`).LatestBar(context.Background(), "AAPL")
	assert.True(t, IsTransient(err))

	_, err = tdServer(t, http.StatusOK, `{"status":"error","code":401,"message":"apikey is incorrect"}`).LatestBar(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.ErrorContains(t, err, "apikey is incorrect")
}
