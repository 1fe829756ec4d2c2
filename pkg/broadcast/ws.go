package broadcast

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netscope-network/netscope/pkg/job"
	"github.com/netscope-network/netscope/pkg/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Progress frames carry no credentials and the stream is read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientMessage is what subscribers may send: pings and filter changes.
type clientMessage struct {
	Type  string `json:"type"`
	JobID string `json:"job_id,omitempty"`
}

// jobUpdateData is the event payload: the mutation kind plus the full job
// snapshot flattened alongside it.
type jobUpdateData struct {
	Event string `json:"event"`
	*job.Job
}

// serverFrame is one outbound message.
type serverFrame struct {
	Type  string         `json:"type"`
	JobID string         `json:"job_id,omitempty"`
	Data  *jobUpdateData `json:"data,omitempty"`
}

// WSHandler upgrades connections and streams job updates. The optional
// job_id query parameter narrows the stream; clients may re-subscribe at
// any time with {"type":"subscribe","job_id":"..."}.
func WSHandler(b *Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			util.Logger.Warnf("websocket upgrade failed: %v", err)
			return
		}

		sub := b.Subscribe(r.URL.Query().Get("job_id"))
		util.Logger.Infof("websocket subscriber connected (%d active)", b.SubscriberCount())

		// pong channel carries ping replies from the reader to the single
		// writer goroutine; the writer owns all writes to the socket.
		pongs := make(chan struct{}, 4)
		done := make(chan struct{})

		go wsReader(conn, sub, pongs, done)
		wsWriter(conn, sub, pongs, done)

		sub.Close()
		conn.Close()
		util.Logger.Infof("websocket subscriber disconnected (%d active)", b.SubscriberCount())
	}
}

// wsReader consumes client messages until the connection drops.
func wsReader(conn *websocket.Conn, sub *Subscription, pongs chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			select {
			case pongs <- struct{}{}:
			default:
			}
		case "subscribe":
			sub.SetFilter(msg.JobID)
		}
	}
}

// wsWriter streams events and keepalives to the client.
func wsWriter(conn *websocket.Conn, sub *Subscription, pongs <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-pongs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(serverFrame{Type: "pong"}); err != nil {
				return
			}

		case ev, ok := <-sub.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			frame := serverFrame{
				Type:  "job_update",
				JobID: ev.JobID,
				Data:  &jobUpdateData{Event: ev.Kind, Job: ev.Job},
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
