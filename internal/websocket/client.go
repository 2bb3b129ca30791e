package websocket

import (
	"bytes"
	"fmt"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера канала отправки сообщений клиенту
	defaultClientBufferSize = 128
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client является посредником между WebSocket соединением и хабом.
type Client struct {
	// ID пользователя
	UserID string

	// Уникальный ID для каждого соединения
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool

	// Канал для ожидания завершения регистрации в хабе
	registrationComplete chan struct{}
}

// NewClient создает нового клиента
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		UserID:               userID,
		ConnectionID:         uuid.New().String(),
		hub:                  hub,
		conn:                 conn,
		send:                 make(chan []byte, defaultClientBufferSize),
		registrationComplete: make(chan struct{}, 1),
	}
}

// StartPumps регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	if c.UserID == "" {
		log.Printf("WebSocket: client has no UserID, skipping registration")
		c.conn.Close()
		return
	}

	c.hub.Register(c)

	// Ожидаем завершения регистрации
	select {
	case <-c.registrationComplete:
	case <-time.After(5 * time.Second):
		log.Printf("WebSocket: timeout waiting for client %s registration", c.UserID)
		c.conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(messageHandler)
}

// enqueue ставит сообщение в очередь отправки клиенту.
// Возвращает false при закрытом канале или переполненном буфере.
func (c *Client) enqueue(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend закрывает канал отправки ровно один раз
func (c *Client) closeSend() {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
	}
}

// confirmRegistration сигнализирует о завершении регистрации в хабе
func (c *Client) confirmRegistration() {
	select {
	case c.registrationComplete <- struct{}{}:
	default:
	}
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Printf("WebSocket Client Read Pump STOPPED for UserID: %s, ConnID: %s", c.UserID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket Client Read Error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			break
		}

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			// Ошибка обработчика фатальна для соединения
			log.Printf("WebSocket Client Handler Error (UserID: %s, ConnID: %s): %v. Closing connection.", c.UserID, c.ConnectionID, handlerErr)
			break
		}
	}
}

// safeHandleMessage — обертка для вызова обработчика с recover.
// Паника в обработчике не должна ронять процесс.
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in message handler for UserID: %s, ConnID: %s. Panic: %v\nStack trace:\n%s",
				client.UserID, client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler == nil {
		log.Printf("Warning: No message handler registered for client %s", client.UserID)
		return nil
	}
	return messageHandler(message, client)
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		log.Printf("WebSocket Client Write Pump STOPPED for UserID: %s, ConnID: %s", c.UserID, c.ConnectionID)
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Канал send закрыт хабом
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket Client Write Error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
