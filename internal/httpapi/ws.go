package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/partforge/partsearch/internal/progress"
)

// wsProgress implements GET /ws/{file_id}: upgrades to a WebSocket and
// forwards every progress message (K) published for that file until the
// client disconnects or the dataset's job finishes.
func (h *handlers) wsProgress(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("file_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid file_id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	messages, unsubscribe := h.Hub.Subscribe(fileID)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "request cancelled")
			return
		case msg, ok := <-messages:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
			if msg.Type == progress.ProcessingComplete || msg.Type == progress.ErrorMessage {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
		}
	}
}
