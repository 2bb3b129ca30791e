package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager обрабатывает WebSocket сообщения поверх хаба
type Manager struct {
	hub            HubInterface
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub HubInterface) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если обработка не удалась и соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Failed to unmarshal message from %s: %v, Message: %s", client.UserID, err, string(message))
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err // Ошибка парсинга - закрываем соединение
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		log.Printf("No handler registered for message type '%s' from client %s", event.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil // Неизвестный тип - не закрываем соединение
	}

	rawMessage, _ := json.Marshal(event.Data)
	if err := handler(rawMessage, client); err != nil {
		log.Printf("Handler for type '%s' returned error for client %s: %v", event.Type, client.UserID, err)
		return err
	}

	return nil
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	errorEvent := Event{
		Type: "server:error",
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	}
	if err := m.hub.SendJSONToUser(client.UserID, errorEvent); err != nil {
		log.Printf("ERROR sending error to client %s: %v", client.UserID, err)
	}
}

// BroadcastEvent отправляет событие всем клиентам
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	return m.hub.BroadcastJSON(Event{
		Type: eventType,
		Data: data,
	})
}

// SendEventToUser отправляет событие конкретному пользователю.
// Возвращает ошибку, если у пользователя нет живого соединения.
func (m *Manager) SendEventToUser(userID string, eventType string, data interface{}) error {
	return m.hub.SendJSONToUser(userID, Event{
		Type: eventType,
		Data: data,
	})
}

// HasConnection проверяет, есть ли у пользователя живое соединение
func (m *Manager) HasConnection(userID string) bool {
	return m.hub.IsConnected(userID)
}

// ClientCount возвращает количество подключенных клиентов
func (m *Manager) ClientCount() int {
	return m.hub.ClientCount()
}
