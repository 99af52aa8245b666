package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherCall(t *testing.T) {
	var got PhoneCallRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call/phone", r.URL.Path)
		assert.Equal(t, "Bearer priv", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"call_1","status":"queued"}`))
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL+"/", "priv", "pn_1")
	res, err := d.Call(context.Background(), " +15550100 ", "You are Sam.", "", "")
	require.NoError(t, err)
	assert.Equal(t, "call_1", res["id"])

	assert.Equal(t, "pn_1", got.PhoneNumberID)
	assert.Equal(t, "+15550100", got.Customer.Number)
	assert.Equal(t, "Dynamic Agent", got.Assistant.Name)
	assert.Equal(t, DefaultOutboundMsg, got.Assistant.FirstMessage)
	assert.Equal(t, DefaultVoiceID, got.Assistant.Voice.VoiceID)
	assert.Equal(t, 0, got.Assistant.Model.MaxTokens)
	assert.Equal(t, 0.7, got.Assistant.Model.Temperature)
	assert.True(t, strings.HasSuffix(got.Assistant.Model.Messages[0].Content, "Do not be overly concise."))
}

func TestDispatcherErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string message", `{"message":"Customer number is invalid"}`, "Customer number is invalid"},
		{"list message", `{"message":["a","b"]}`, "a; b"},
		{"no message", `{"error":"x"}`, "Failed to initiate outbound call"},
		{"not json", `oops`, "Failed to initiate outbound call"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewDispatcher(srv.URL, "priv", "pn").Call(context.Background(), "+1", "p", "hi", "")
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.True(t, errors.Is(err, ErrDispatch))

			var de *DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, http.StatusBadRequest, de.Status)
		})
	}
}

func TestDispatcherValidation(t *testing.T) {
	d := NewDispatcher("", "priv", "pn")
	_, err := d.Call(context.Background(), "  ", "p", "", "")
	assert.ErrorIs(t, err, ErrPhoneRequired)

	_, err = NewDispatcher("", "", "pn").Call(context.Background(), "+1", "p", "", "")
	assert.ErrorIs(t, err, ErrDispatchNotConfigured)
}

func TestDispatcherCallFollowsRequestContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewDispatcher(srv.URL, "priv", "pn_1")
	assert.Zero(t, d.client.Timeout, "calls are bounded by the request context only")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Call(ctx, "+15550100", "You are Sam.", "", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
