package stream

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/soundscape/internal/audio"
)

func TestEncoderArgsFollowFormat(t *testing.T) {
	h := NewHTTPHandler(NewBroadcaster(), audio.Format{SampleRate: 24000, Channels: 1}, "test")
	args := h.encoderArgs()

	i := slices.Index(args, "-ar")
	require.GreaterOrEqual(t, i, 0, "-ar missing: %v", args)
	assert.Equal(t, "24000", args[i+1])

	i = slices.Index(args, "-ac")
	require.GreaterOrEqual(t, i, 0, "-ac missing: %v", args)
	assert.Equal(t, "1", args[i+1])

	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestWebRTCRejectsNonPost(t *testing.T) {
	h := NewWebRTCHandler(NewBroadcaster(), audio.DefaultFormat(), "test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offer", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebRTCPreflight(t *testing.T) {
	h := NewWebRTCHandler(NewBroadcaster(), audio.DefaultFormat(), "test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/offer", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestWebRTCBadOffer(t *testing.T) {
	h := NewWebRTCHandler(NewBroadcaster(), audio.DefaultFormat(), "test")

	for _, body := range []string{"not json", `{"type":"offer"}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/offer", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Zero(t, h.PeerCount())
}

func TestWebRTCRemoveUnknownPeer(t *testing.T) {
	h := NewWebRTCHandler(NewBroadcaster(), audio.DefaultFormat(), "test")
	assert.False(t, h.removePeer("nope"))
	h.Close()
	assert.Empty(t, h.PeerIDs())
}
