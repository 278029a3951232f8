package render

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/pkg/streaming"
)

type recordingQueue struct {
	mu    sync.Mutex
	lines []string
}

func (q *recordingQueue) enqueue(source, line string) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines = append(q.lines, source+":"+line)
	return uint64(len(q.lines))
}

func startHub(t *testing.T, deps Dependencies) (*Hub, string) {
	t.Helper()
	h, err := NewHub(deps)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		_ = h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *ws.Conn {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type jsonFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readJSON(t *testing.T, conn *ws.Conn) jsonFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ws.TextMessage, mt)
	var f jsonFrame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestNewHub_UnknownEncoding(t *testing.T) {
	_, err := NewHub(Dependencies{Encoding: "xml"})
	assert.ErrorContains(t, err, "unknown render encoding")
}

func TestNewHub_DefaultsToJSON(t *testing.T) {
	h, err := NewHub(Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, h.Encoding())
}

func TestHub_HelloThenSnapshots(t *testing.T) {
	h, url := startHub(t, Dependencies{TickInterval: 100 * time.Millisecond})
	conn := dial(t, url)

	hello := readJSON(t, conn)
	assert.Equal(t, streaming.TypeHello, hello.Type)
	var hp streaming.HelloPayload
	require.NoError(t, json.Unmarshal(hello.Payload, &hp))
	assert.Equal(t, "json", hp.Encoding)
	assert.Equal(t, int64(100), hp.TickIntervalMs)

	waitClients(t, h, 1)
	h.Publish(&sim.Snapshot{Tick: 3, Vehicles: []sim.VehicleView{{ID: "PL-1", Kind: "aircraft"}}})

	f := readJSON(t, conn)
	assert.Equal(t, streaming.TypeSnapshot, f.Type)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(f.Payload, &snap))
	assert.Equal(t, uint64(3), snap.Tick)
	require.Len(t, snap.Vehicles, 1)
	assert.Equal(t, "PL-1", snap.Vehicles[0].ID)
}

func TestHub_LateClientGetsLatestSnapshot(t *testing.T) {
	h, url := startHub(t, Dependencies{})
	h.Publish(&sim.Snapshot{Tick: 9})

	conn := dial(t, url)
	assert.Equal(t, streaming.TypeHello, readJSON(t, conn).Type)

	f := readJSON(t, conn)
	assert.Equal(t, streaming.TypeSnapshot, f.Type)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(f.Payload, &snap))
	assert.Equal(t, uint64(9), snap.Tick)
}

func TestHub_Msgpack(t *testing.T) {
	h, url := startHub(t, Dependencies{Encoding: EncodingMsgpack})
	conn := dial(t, url)
	waitClients(t, h, 1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, _, err := conn.ReadMessage() // hello
	require.NoError(t, err)
	assert.Equal(t, ws.BinaryMessage, mt)

	h.Publish(&sim.Snapshot{Tick: 4, Tallies: map[string]int{"bus": 2}})

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env struct {
		Type    string       `msgpack:"type"`
		Payload sim.Snapshot `msgpack:"payload"`
	}
	require.NoError(t, msgpack.Unmarshal(data, &env))
	assert.Equal(t, streaming.TypeSnapshot, env.Type)
	assert.Equal(t, uint64(4), env.Payload.Tick)
	assert.Equal(t, 2, env.Payload.Tallies["bus"])
}

func TestHub_CommandFrameIsEnqueuedAndAcked(t *testing.T) {
	q := &recordingQueue{}
	_, url := startHub(t, Dependencies{Enqueue: q.enqueue})
	conn := dial(t, url)
	readJSON(t, conn) // hello

	require.NoError(t, conn.WriteJSON(streaming.Envelope{Type: streaming.TypeCommand, Payload: "/plane 1"}))

	f := readJSON(t, conn)
	require.Equal(t, streaming.TypeAck, f.Type)

	q.mu.Lock()
	assert.Equal(t, []string{"ws:/plane 1"}, q.lines)
	q.mu.Unlock()
}

func TestHub_CommandFrameMsgpack(t *testing.T) {
	q := &recordingQueue{}
	_, url := startHub(t, Dependencies{Enqueue: q.enqueue})
	conn := dial(t, url)
	readJSON(t, conn)

	data, err := msgpack.Marshal(streaming.Envelope{Type: streaming.TypeCommand, Payload: "/clear BUS"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.BinaryMessage, data))

	assert.Equal(t, streaming.TypeAck, readJSON(t, conn).Type)
	q.mu.Lock()
	assert.Equal(t, []string{"ws:/clear BUS"}, q.lines)
	q.mu.Unlock()
}

func TestHub_RejectsCommandsWithoutQueue(t *testing.T) {
	_, url := startHub(t, Dependencies{})
	conn := dial(t, url)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(streaming.Envelope{Type: streaming.TypeCommand, Payload: "/plane 1"}))
	assert.Equal(t, streaming.TypeError, readJSON(t, conn).Type)
}

func TestHub_MalformedFrame(t *testing.T) {
	q := &recordingQueue{}
	_, url := startHub(t, Dependencies{Enqueue: q.enqueue})
	conn := dial(t, url)
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("{not json")))
	assert.Equal(t, streaming.TypeError, readJSON(t, conn).Type)
	assert.Empty(t, q.lines)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h, url := startHub(t, Dependencies{})
	conn := dial(t, url)
	waitClients(t, h, 1)

	require.NoError(t, conn.Close())
	waitClients(t, h, 0)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h, url := startHub(t, Dependencies{})
	conn := dial(t, url)
	readJSON(t, conn)
	waitClients(t, h, 1)

	require.NoError(t, h.Close())
	assert.Equal(t, 0, h.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	c := &client{sendCh: make(chan []byte, 1), done: make(chan struct{})}
	assert.True(t, c.send([]byte("a")))
	assert.False(t, c.send([]byte("b")), "a full buffer drops the frame")

	close(c.done)
	<-c.sendCh
	assert.False(t, c.send([]byte("c")), "a closed client accepts nothing")
}
