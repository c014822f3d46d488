package debugviz

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zeusync/perception/internal/core/observability/log"
)

// Message types of the feed envelope.
const (
	MessageInit  = "init"
	MessageFrame = "frame"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type watcher struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (w *watcher) close() {
	w.once.Do(func() { close(w.send) })
}

// Feed is an http.Handler that upgrades to a websocket and pushes JSON
// messages to every connected viewer. Slow viewers drop messages instead of
// stalling the simulation.
type Feed struct {
	upgrader websocket.Upgrader
	logger   log.Log

	mu       sync.RWMutex
	watchers map[string]*watcher
	init     any
	dropped  atomic.Uint64
}

type FeedOption func(*Feed)

func WithFeedLogger(l log.Log) FeedOption {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithInit sends data as an "init" message to every viewer on connect.
func WithInit(data any) FeedOption {
	return func(f *Feed) { f.init = data }
}

func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:   log.Provide(),
		watchers: make(map[string]*watcher),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("websocket upgrade failed", log.Error(err))
		return
	}
	wt := &watcher{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	if f.init != nil {
		if msg, err := json.Marshal(envelope{Type: MessageInit, Data: f.init}); err == nil {
			wt.send <- msg
		}
	}

	f.mu.Lock()
	f.watchers[wt.id] = wt
	f.mu.Unlock()
	f.logger.Info("viewer connected", log.String("viewer", wt.id), log.String("remote", conn.RemoteAddr().String()))

	go f.writeLoop(wt)
	f.readLoop(wt)
}

// readLoop discards client messages; it only exists to notice the close.
func (f *Feed) readLoop(wt *watcher) {
	defer f.remove(wt)
	for {
		if _, _, err := wt.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writeLoop(wt *watcher) {
	defer wt.conn.Close()
	for msg := range wt.send {
		_ = wt.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := wt.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			f.logger.Debug("viewer write failed", log.String("viewer", wt.id), log.Error(err))
			f.remove(wt)
			return
		}
	}
	_ = wt.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (f *Feed) remove(wt *watcher) {
	f.mu.Lock()
	_, ok := f.watchers[wt.id]
	delete(f.watchers, wt.id)
	f.mu.Unlock()
	wt.close()
	if ok {
		f.logger.Info("viewer disconnected", log.String("viewer", wt.id))
	}
}

// Broadcast sends one message to every viewer.
func (f *Feed) Broadcast(typ string, data any) {
	msg, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		f.logger.Error("encode feed message", log.String("type", typ), log.Error(err))
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, wt := range f.watchers {
		select {
		case wt.send <- msg:
		default:
			f.dropped.Add(1)
		}
	}
}

// Viewers is the number of connected viewers.
func (f *Feed) Viewers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.watchers)
}

// Dropped counts messages not delivered to slow viewers.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

// Close disconnects every viewer.
func (f *Feed) Close() {
	f.mu.Lock()
	watchers := f.watchers
	f.watchers = make(map[string]*watcher)
	f.mu.Unlock()
	for _, wt := range watchers {
		wt.close()
	}
}
