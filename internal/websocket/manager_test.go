package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHub реализует HubInterface и накапливает отправленные сообщения
type fakeHub struct {
	broadcasts []interface{}
	sent       map[string][]interface{}
	connected  map[string]bool
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		sent:      make(map[string][]interface{}),
		connected: make(map[string]bool),
	}
}

func (f *fakeHub) BroadcastJSON(v interface{}) error {
	f.broadcasts = append(f.broadcasts, v)
	return nil
}

func (f *fakeHub) SendJSONToUser(userID string, v interface{}) error {
	f.sent[userID] = append(f.sent[userID], v)
	return nil
}

func (f *fakeHub) SendToUser(userID string, message []byte) bool {
	return f.connected[userID]
}

func (f *fakeHub) IsConnected(userID string) bool {
	return f.connected[userID]
}

func (f *fakeHub) ClientCount() int {
	return len(f.connected)
}

func testClient(userID string) *Client {
	return &Client{UserID: userID}
}

func TestManager_HandleMessage_DispatchesToHandler(t *testing.T) {
	// Arrange
	hub := newFakeHub()
	manager := NewManager(hub)

	var gotData json.RawMessage
	manager.RegisterHandler("notification:subscribe", func(data json.RawMessage, client *Client) error {
		gotData = data
		return nil
	})

	// Act
	err := manager.HandleMessage([]byte(`{"type":"notification:subscribe","data":{"x":1}}`), testClient("7"))

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(gotData))
}

func TestManager_HandleMessage_InvalidJSONClosesConnection(t *testing.T) {
	// Arrange
	hub := newFakeHub()
	manager := NewManager(hub)

	// Act
	err := manager.HandleMessage([]byte(`{not json`), testClient("7"))

	// Assert: ошибка возвращается (соединение закроется), клиенту уходит server:error
	require.Error(t, err)
	require.Len(t, hub.sent["7"], 1)
	errorEvent := hub.sent["7"][0].(Event)
	assert.Equal(t, "server:error", errorEvent.Type)
}

func TestManager_HandleMessage_UnknownTypeKeepsConnection(t *testing.T) {
	// Arrange
	hub := newFakeHub()
	manager := NewManager(hub)

	// Act
	err := manager.HandleMessage([]byte(`{"type":"no:such:type","data":{}}`), testClient("7"))

	// Assert: неизвестный тип не закрывает соединение
	assert.NoError(t, err)
	require.Len(t, hub.sent["7"], 1)
	assert.Equal(t, "server:error", hub.sent["7"][0].(Event).Type)
}

func TestManager_BroadcastEvent(t *testing.T) {
	// Arrange
	hub := newFakeHub()
	manager := NewManager(hub)

	// Act
	err := manager.BroadcastEvent(CompetitionListUpdate, map[string]int{"count": 2})

	// Assert
	require.NoError(t, err)
	require.Len(t, hub.broadcasts, 1)
	event := hub.broadcasts[0].(Event)
	assert.Equal(t, CompetitionListUpdate, event.Type)
}

func TestManager_HasConnection(t *testing.T) {
	// Arrange
	hub := newFakeHub()
	hub.connected["3"] = true
	manager := NewManager(hub)

	// Assert
	assert.True(t, manager.HasConnection("3"))
	assert.False(t, manager.HasConnection("4"))
}
