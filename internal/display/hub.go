package display

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	viewerBuffer = 4 // frames queued per viewer before we start dropping
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// Hub pushes rendered frames to websocket viewers as binary PNG messages
// and forwards JSON commands from them.
type Hub struct {
	mu       sync.RWMutex
	viewers  map[string]*viewer
	onCmd    func(Command) error
	lastSent []byte
}

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (v *viewer) close() {
	v.once.Do(func() {
		close(v.done)
		v.conn.Close()
	})
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{viewers: make(map[string]*viewer)}
}

// HandleCommands sets where viewer commands go, usually Driver.Submit.
func (h *Hub) HandleCommands(fn func(Command) error) {
	h.mu.Lock()
	h.onCmd = fn
	h.mu.Unlock()
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Publish queues frame for every viewer. Viewers whose queue is full miss
// this frame.
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSent = frame
	for _, v := range h.viewers {
		select {
		case v.send <- frame:
		default:
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Viewer upgrade failed: %v", err)
		return
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, viewerBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.viewers[v.id] = v
	if h.lastSent != nil {
		v.send <- h.lastSent
	}
	n := len(h.viewers)
	h.mu.Unlock()
	viewers.Set(float64(n))
	log.Printf("Viewer %s connected (total: %d)", v.id[:8], n)

	go h.writeLoop(v)
	h.readLoop(v)

	h.mu.Lock()
	delete(h.viewers, v.id)
	n = len(h.viewers)
	h.mu.Unlock()
	v.close()
	viewers.Set(float64(n))
	log.Printf("Viewer %s disconnected (remaining: %d)", v.id[:8], n)
}

func (h *Hub) writeLoop(v *viewer) {
	defer v.close()
	for {
		select {
		case <-v.done:
			return
		case frame := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}
}

// readLoop returns when the viewer goes away. Malformed commands are
// logged and skipped.
func (h *Hub) readLoop(v *viewer) {
	v.conn.SetReadLimit(4096)
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		var c Command
		if err := json.Unmarshal(data, &c); err != nil {
			log.Printf("Viewer %s sent bad command: %v", v.id[:8], err)
			continue
		}

		h.mu.RLock()
		fn := h.onCmd
		h.mu.RUnlock()
		if fn == nil {
			continue
		}
		if err := fn(c); err != nil {
			log.Printf("Viewer %s command %q rejected: %v", v.id[:8], c.Op, err)
		}
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, v := range h.viewers {
		v.close()
	}
}
