package broadcast

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netscope-network/netscope/pkg/job"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame serverFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWSHandler_StreamsJobUpdates(t *testing.T) {
	b := New()
	defer b.Close()

	srv := httptest.NewServer(WSHandler(b))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?job_id=j1"
	conn := dialWS(t, url)
	defer conn.Close()

	// Give the handler a beat to register its subscription.
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(job.EventJobCreated, "j2", &job.Job{ID: "j2"})
	b.Publish(job.EventJobCreated, "j1", &job.Job{ID: "j1", Status: job.StatusRunning})

	frame := readFrame(t, conn)
	if frame.Type != "job_update" || frame.JobID != "j1" {
		t.Fatalf("frame = %+v, want filtered j1 update", frame)
	}
	if frame.Data == nil || frame.Data.Event != job.EventJobCreated {
		t.Errorf("data = %+v", frame.Data)
	}
	if frame.Data.Job == nil || frame.Data.Job.ID != "j1" {
		t.Errorf("snapshot = %+v", frame.Data.Job)
	}
}

func TestWSHandler_PingPong(t *testing.T) {
	b := New()
	defer b.Close()

	srv := httptest.NewServer(WSHandler(b))
	defer srv.Close()

	conn := dialWS(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, conn)
	if frame.Type != "pong" {
		t.Errorf("frame type = %q, want pong", frame.Type)
	}
}

func TestWSHandler_Resubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	srv := httptest.NewServer(WSHandler(b))
	defer srv.Close()

	conn := dialWS(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"?job_id=j1")
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "job_id": "j3"}); err != nil {
		t.Fatal(err)
	}
	// A ping round-trip guarantees the subscribe was processed before we
	// publish.
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if frame := readFrame(t, conn); frame.Type != "pong" {
		t.Fatalf("frame = %+v", frame)
	}

	b.Publish(job.EventProgressUpdate, "j1", &job.Job{ID: "j1"})
	b.Publish(job.EventProgressUpdate, "j3", &job.Job{ID: "j3"})

	frame := readFrame(t, conn)
	if frame.JobID != "j3" {
		t.Errorf("frame job = %q, want j3 after resubscribe", frame.JobID)
	}
}

func TestServerFrameShape(t *testing.T) {
	frame := serverFrame{
		Type:  "job_update",
		JobID: "j1",
		Data:  &jobUpdateData{Event: job.EventJobCompleted, Job: &job.Job{ID: "j1", Status: job.StatusCompleted}},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"type":"job_update"`, `"job_id":"j1"`, `"event":"job_completed"`, `"status":"completed"`} {
		if !strings.Contains(s, want) {
			t.Errorf("frame json missing %s: %s", want, s)
		}
	}
}
