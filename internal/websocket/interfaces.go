package websocket

// HubInterface объединяет возможности хаба, необходимые Manager.
// Это каноническое определение интерфейса хаба.
type HubInterface interface {
	// BroadcastJSON отправляет структуру JSON всем клиентам
	BroadcastJSON(v interface{}) error

	// SendJSONToUser отправляет структуру JSON конкретному пользователю
	SendJSONToUser(userID string, v interface{}) error

	// SendToUser отправляет байтовое сообщение конкретному пользователю.
	// Возвращает false, если у пользователя нет живого соединения.
	SendToUser(userID string, message []byte) bool

	// IsConnected проверяет, есть ли у пользователя живое соединение
	IsConnected(userID string) bool

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
