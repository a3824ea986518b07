package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/partforge/partsearch/internal/progress"
)

func TestWSProgress_ForwardsPublishedMessagesThenClosesOnComplete(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	token := s.authHeader(t).Get("Authorization")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/42"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {token}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	// wsProgress subscribes just after completing the handshake; give that
	// goroutine a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	hub := s.hubForTest()
	hub.Publish(42, progress.Message{Type: progress.BatchProgress, ProcessedRows: 10, CurrentBatch: 1})
	hub.Publish(42, progress.Message{Type: progress.ProcessingComplete})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var first progress.Message
	require.NoError(t, json.Unmarshal(data, &first))
	require.Equal(t, progress.BatchProgress, first.Type)

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	var second progress.Message
	require.NoError(t, json.Unmarshal(data, &second))
	require.Equal(t, progress.ProcessingComplete, second.Type)

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
}
