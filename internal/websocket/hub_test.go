package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRegistryClient создает клиента без сетевого соединения: реестру хаба
// нужны только UserID и канал отправки
func newRegistryClient(userID string) *Client {
	return &Client{
		UserID:               userID,
		ConnectionID:         uuid.New().String(),
		send:                 make(chan []byte, 8),
		registrationComplete: make(chan struct{}, 1),
	}
}

func startTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func registerAndWait(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register(client)
	select {
	case <-client.registrationComplete:
	case <-time.After(time.Second):
		t.Fatalf("регистрация клиента %s не завершилась", client.ConnectionID)
	}
}

func receiveMessage(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case message := <-client.send:
		return message
	case <-time.After(time.Second):
		t.Fatalf("клиент %s не получил сообщение", client.ConnectionID)
		return nil
	}
}

func TestHub_NewerSubscriptionDisplacesOlder(t *testing.T) {
	// Arrange: два соединения одного пользователя
	hub, cancel := startTestHub(t)
	defer cancel()

	first := newRegistryClient("7")
	second := newRegistryClient("7")
	registerAndWait(t, hub, first)
	registerAndWait(t, hub, second)

	// Assert: в реестре остается одно живое соединение
	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, hub.IsConnected("7"))

	// Act: адресная отправка идет в более позднее соединение
	require.True(t, hub.SendToUser("7", []byte(`{"type":"ping"}`)))
	message := receiveMessage(t, second)
	assert.JSONEq(t, `{"type":"ping"}`, string(message))

	// Assert: канал вытесненного соединения закрыт, enqueue отвергается
	assert.False(t, first.enqueue([]byte("late")))
	_, open := <-first.send
	assert.False(t, open, "канал вытесненного клиента должен быть закрыт")
}

func TestHub_StaleUnregisterKeepsNewConnection(t *testing.T) {
	// Arrange: пользователь переподключился, затем readPump старого
	// соединения отменяет свою регистрацию
	hub, cancel := startTestHub(t)
	defer cancel()

	first := newRegistryClient("7")
	second := newRegistryClient("7")
	registerAndWait(t, hub, first)
	registerAndWait(t, hub, second)

	// Act
	hub.Unregister(first)
	// Регистрация стороннего клиента упорядочивает обработку: хаб
	// обслуживает каналы одной горутиной
	registerAndWait(t, hub, newRegistryClient("other"))

	// Assert: привязка пользователя не затронута устаревшей отменой
	assert.True(t, hub.IsConnected("7"))
	require.True(t, hub.SendToUser("7", []byte(`{"type":"ping"}`)))
	receiveMessage(t, second)
}

func TestHub_SendToUserWithoutConnection(t *testing.T) {
	// Arrange
	hub, cancel := startTestHub(t)
	defer cancel()

	// Act & Assert
	assert.False(t, hub.SendToUser("42", []byte("hello")))
	assert.False(t, hub.IsConnected("42"))
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	// Arrange: два разных пользователя
	hub, cancel := startTestHub(t)
	defer cancel()

	alice := newRegistryClient("1")
	bob := newRegistryClient("2")
	registerAndWait(t, hub, alice)
	registerAndWait(t, hub, bob)

	// Act
	require.NoError(t, hub.BroadcastJSON(map[string]string{"type": "competition:list_update"}))

	// Assert
	assert.JSONEq(t, `{"type":"competition:list_update"}`, string(receiveMessage(t, alice)))
	assert.JSONEq(t, `{"type":"competition:list_update"}`, string(receiveMessage(t, bob)))
}

func TestHub_ShutdownClosesAllClients(t *testing.T) {
	// Arrange
	hub, cancel := startTestHub(t)
	client := newRegistryClient("7")
	registerAndWait(t, hub, client)

	// Act
	cancel()

	// Assert: реестр очищен, канал клиента закрыт
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
	assert.False(t, hub.IsConnected("7"))
}

func TestHub_ConcurrentDisplacementAndDelivery(t *testing.T) {
	// Arrange: переподключения пользователя гонятся с адресной отправкой
	hub, cancel := startTestHub(t)
	defer cancel()

	const reconnects = 50
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < reconnects; i++ {
			client := newRegistryClient("9")
			hub.Register(client)
			<-client.registrationComplete
			go func(c *Client) {
				for range c.send {
					// Вычитываем, чтобы буфер не переполнялся
				}
			}(client)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < reconnects*4; i++ {
			hub.SendToUser("9", []byte(`{"type":"ping"}`))
		}
	}()

	// Act
	wg.Wait()

	// Assert: после гонки остается одно живое соединение пользователя
	assert.True(t, hub.IsConnected("9"))
	assert.Equal(t, 1, hub.ClientCount())
}
