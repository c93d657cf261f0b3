// Package ws streams live schedule updates to connected dashboards over
// WebSockets: a countdown heartbeat every second plus a full timeline push
// whenever a reconciliation pass publishes a new snapshot.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// SnapshotStream is the runner surface the live feed consumes.
type SnapshotStream interface {
	Latest() *schedule.Snapshot
	Subscribe() <-chan *schedule.Snapshot
	Unsubscribe(<-chan *schedule.Snapshot)
}

// Message is one frame pushed to the dashboard.
type Message struct {
	Type      string               `json:"type"`
	Countdown *schedule.Countdown  `json:"countdown,omitempty"`
	Status    string               `json:"status,omitempty"`
	Day       string               `json:"day,omitempty"`
	Schedule  schedule.DaySchedule `json:"schedule,omitempty"`
}

const writeTimeout = 5 * time.Second

// LiveHandler upgrades dashboard connections and pushes schedule and
// countdown frames until the client goes away.
type LiveHandler struct {
	stream   SnapshotStream
	logger   *logging.Logger
	upgrader websocket.Upgrader
	interval time.Duration
	now      func() time.Time
}

func NewLiveHandler(stream SnapshotStream, logger *logging.Logger) *LiveHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveHandler{
		stream: stream,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer and the provider JWT.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		interval: time.Second,
		now:      time.Now,
	}
}

// Serve handles one live-feed connection.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	updates := h.stream.Subscribe()
	defer h.stream.Unsubscribe(updates)

	// Reader goroutine only watches for the client closing the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap := h.stream.Latest(); snap != nil {
		if err := h.write(conn, scheduleMessage(snap)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := h.write(conn, scheduleMessage(snap)); err != nil {
				return
			}
		case <-ticker.C:
			snap := h.stream.Latest()
			if snap == nil || snap.NoData() {
				continue
			}
			now := h.now().In(snap.Day.Location())
			countdown := schedule.NextRelevant(snap.Schedule, snap.Appointments, now)
			if err := h.write(conn, Message{Type: "countdown", Countdown: &countdown}); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", "error", err)
		return err
	}
	return nil
}

func scheduleMessage(snap *schedule.Snapshot) Message {
	msg := Message{Type: "schedule"}
	if snap == nil || snap.NoData() {
		msg.Status = "no_data"
		return msg
	}
	msg.Status = "ok"
	if !snap.RemoteOK {
		msg.Status = "degraded"
	}
	msg.Day = snap.Day.Format("2006-01-02")
	msg.Schedule = snap.Schedule
	return msg
}
