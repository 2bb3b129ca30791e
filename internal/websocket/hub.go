package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

const (
	// Размер буфера канала широковещательных сообщений
	broadcastBufferSize = 256
)

// Hub ведет реестр живых соединений и выполняет рассылку: всем клиентам
// или одному пользователю. Реестр эфемерный и перестраивается по мере
// подключений, в долговечное хранилище он не попадает.
//
// На пользователя отслеживается одно живое соединение: более поздняя
// регистрация того же пользователя молча вытесняет предыдущую.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Привязка userID -> текущее соединение пользователя
	userConns map[string]*Client

	// Канал входящих регистраций
	register chan *Client

	// Канал отмены регистраций
	unregister chan *Client

	// Канал широковещательных сообщений
	broadcast chan []byte

	// Мьютекс для конкурентного чтения реестра (SendToUser, ClientCount
	// вызываются вне горутины Run)
	mu sync.RWMutex
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		userConns:  make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBufferSize),
	}
}

// Run обрабатывает регистрации и широковещательные сообщения.
// Запускается одной горутиной при старте приложения.
func (h *Hub) Run(ctx context.Context) {
	log.Println("[Hub] Хаб запущен")

	for {
		select {
		case <-ctx.Done():
			log.Println("[Hub] Завершение работы хаба")
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Register ставит клиента в очередь на регистрацию
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister ставит клиента в очередь на отмену регистрации
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastJSON отправляет структуру JSON всем клиентам
func (h *Hub) BroadcastJSON(v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	// Неблокирующая отправка: при переполненном канале сообщение
	// отбрасывается, клиент восстановится, запросив полный снимок
	select {
	case h.broadcast <- message:
		return nil
	default:
		log.Printf("[Hub] Предупреждение: канал рассылки переполнен, сообщение отброшено")
		return nil
	}
}

// SendJSONToUser отправляет структуру JSON конкретному пользователю
func (h *Hub) SendJSONToUser(userID string, v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for user %s: %w", userID, err)
	}
	if !h.SendToUser(userID, message) {
		return fmt.Errorf("user %s has no live connection", userID)
	}
	return nil
}

// SendToUser отправляет байтовое сообщение пользователю.
// Возвращает false, если у пользователя нет живого соединения
// или его буфер переполнен.
func (h *Hub) SendToUser(userID string, message []byte) bool {
	// Блокировка удерживается на время enqueue: closeSend выполняется
	// только под полной блокировкой, поэтому отправка в закрытый канал
	// исключена.
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.userConns[userID]
	if !ok {
		return false
	}
	return client.enqueue(message)
}

// IsConnected проверяет, есть ли у пользователя живое соединение
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userConns[userID]
	return ok
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// registerClient добавляет клиента в реестр. Существующее соединение того же
// пользователя вытесняется: побеждает более поздняя подписка.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if previous, ok := h.userConns[client.UserID]; ok && previous != client {
		delete(h.clients, previous)
		previous.closeSend()
		log.Printf("[Hub] Пользователь %s: предыдущее соединение %s вытеснено новым %s",
			client.UserID, previous.ConnectionID, client.ConnectionID)
	}
	h.clients[client] = true
	h.userConns[client.UserID] = client
	h.mu.Unlock()

	client.confirmRegistration()
	log.Printf("[Hub] Клиент зарегистрирован: UserID=%s, ConnID=%s", client.UserID, client.ConnectionID)
}

// unregisterClient убирает клиента из реестра
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		// Привязку пользователя снимаем только если она все еще указывает
		// на это соединение, иначе затерли бы пришедшую на смену
		if current, ok := h.userConns[client.UserID]; ok && current == client {
			delete(h.userConns, client.UserID)
		}
		client.closeSend()
		log.Printf("[Hub] Клиент отключен: UserID=%s, ConnID=%s", client.UserID, client.ConnectionID)
	}
	h.mu.Unlock()
}

// broadcastToAll раздает сообщение всем клиентам. Доставка best-effort:
// клиент с переполненным буфером пропускает сообщение.
func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.enqueue(message) {
			log.Printf("[Hub] Буфер клиента %s переполнен, сообщение пропущено", client.UserID)
		}
	}
}

// closeAll закрывает каналы отправки всех клиентов при остановке хаба
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[*Client]bool)
	h.userConns = make(map[string]*Client)
}
