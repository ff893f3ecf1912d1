package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySenderPostsMessage(t *testing.T) {
	var got map[string]interface{}
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewGatewaySender(GatewayConfig{
		APIURL:     srv.URL,
		Username:   "u",
		Password:   "p",
		Originator: "Fitora",
	})
	require.NoError(t, sender.Send(context.Background(), "+15550001", "Your code is 123456"))

	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 1)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "+15550001", first["recipient"])
}

func TestGatewaySenderNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad originator", http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewGatewaySender(GatewayConfig{APIURL: srv.URL})
	err := sender.Send(context.Background(), "+15550001", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
