package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/selfevent"
	"github.com/emergent-company/memoryd/internal/task"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root, bus, selfevent.New(0))
	require.NoError(t, err)
	taskStore, err := task.New(root, "per_file", bus)
	require.NoError(t, err)

	s := New(Deps{
		Root:        root,
		Memory:      memStore,
		Task:        taskStore,
		Bus:         bus,
		Registry:    mcp.NewRegistry(),
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      nil,
		Name:        "memoryd-test",
	})
	ts := httptest.NewServer(s.routes())
	return s, ts
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMemoriesCreateAndFetch(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	payload, _ := json.Marshal(memory.AddInput{Content: "remember the deploy key", Project: "infra"})
	resp, err := http.Post(ts.URL+"/api/memories", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec memory.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.NotEmpty(t, rec.ID)

	getResp, err := http.Get(ts.URL + "/api/memories/" + rec.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestMemoryItem_NotFound(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/memories/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToolPassthrough_UnknownTool(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/mcp-tools/nope", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS_DisallowedOriginNotEchoed(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_SendsSnapshotFirst(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
}
