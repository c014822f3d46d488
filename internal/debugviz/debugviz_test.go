package debugviz

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestWedgeCounts(t *testing.T) {
	cfg := perception.DefaultConfig()
	for _, segments := range []int{1, 4, DefaultSegments} {
		m := Wedge(cfg, segments)
		tris := 4 + 4*segments
		assert.Len(t, m.Vertices, tris*3)
		assert.Len(t, m.Triangles, tris*3)
		assert.Equal(t, tris*3-1, m.Triangles[len(m.Triangles)-1])
	}
	assert.Len(t, Wedge(cfg, 0).Vertices, 24)
}

func TestWedgeBounds(t *testing.T) {
	cfg := perception.DefaultConfig()
	cfg.Radius = 5
	cfg.FieldOfView = 45
	cfg.VerticalBand = 2
	m := Wedge(cfg, 8)
	for _, v := range m.Vertices {
		assert.LessOrEqual(t, v.Flatten().Len(), 5+1e-9)
		assert.True(t, v.Y == 0 || v.Y == 2, "vertex %v off the band", v)
		if v.Flatten().LenSq() > 0 {
			assert.LessOrEqual(t, physics.AngleDeg(v.Flatten(), physics.Forward), 45+1e-9)
		}
	}
}

func TestFrameOf(t *testing.T) {
	w := physics.NewWorld()
	b, err := w.Spawn(physics.BodySpec{Layer: 2, Position: physics.V3(0, 0, 4)})
	require.NoError(t, err)
	s, err := perception.New(perception.DefaultConfig(), w, physics.Pose{Fwd: physics.Forward}, perception.WithID("guard"))
	require.NoError(t, err)

	f := FrameOf(s.ID(), s.Scan())
	assert.Equal(t, "guard", f.Sensor)
	assert.EqualValues(t, 1, f.Seq)
	assert.Equal(t, []physics.BodyID{b.ID()}, f.InSight)
	assert.Empty(t, f.InRange)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg.Type, msg.Data
}

func TestFeedBroadcastsFrames(t *testing.T) {
	feed := NewFeed(WithInit(map[string]Mesh{"guard": Wedge(perception.DefaultConfig(), 2)}))
	srv := httptest.NewServer(feed)
	defer srv.Close()
	defer feed.Close()

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return feed.Viewers() == 2 }, 2*time.Second, 10*time.Millisecond)

	for _, conn := range []*websocket.Conn{a, b} {
		typ, data := readEnvelope(t, conn)
		assert.Equal(t, MessageInit, typ)
		var meshes map[string]Mesh
		require.NoError(t, json.Unmarshal(data, &meshes))
		assert.Len(t, meshes["guard"].Vertices, 36)
	}

	feed.Broadcast(MessageFrame, Frame{Sensor: "guard", Seq: 7, InSight: []physics.BodyID{3}})
	for _, conn := range []*websocket.Conn{a, b} {
		typ, data := readEnvelope(t, conn)
		assert.Equal(t, MessageFrame, typ)
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		assert.Equal(t, "guard", f.Sensor)
		assert.EqualValues(t, 7, f.Seq)
		assert.Equal(t, []physics.BodyID{3}, f.InSight)
	}

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return feed.Viewers() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestAttachForwardsScans(t *testing.T) {
	eb := bus.New()
	feed := NewFeed()
	srv := httptest.NewServer(feed)
	defer srv.Close()
	defer feed.Close()

	sub, err := Attach(eb, feed)
	require.NoError(t, err)
	defer sub.Cancel()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return feed.Viewers() == 1 }, 2*time.Second, 10*time.Millisecond)

	s, err := perception.New(perception.DefaultConfig(), physics.NewWorld(), physics.Pose{Fwd: physics.Forward},
		perception.WithID("tower"), perception.WithEventBus(eb))
	require.NoError(t, err)
	s.Scan()

	typ, data := readEnvelope(t, conn)
	assert.Equal(t, MessageFrame, typ)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "tower", f.Sensor)
	assert.EqualValues(t, 1, f.Seq)
}

func TestCloseDisconnectsViewers(t *testing.T) {
	feed := NewFeed()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return feed.Viewers() == 1 }, 2*time.Second, 10*time.Millisecond)
	feed.Close()
	assert.Zero(t, feed.Viewers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
