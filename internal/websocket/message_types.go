package websocket

// Топики исходящих сообщений
const (
	// CompetitionListUpdate несет полный снимок открытых соревнований
	CompetitionListUpdate = "competition:list_update"

	// CompetitionResultsUpdate несет обновленную карту лучших результатов
	// одного соревнования
	CompetitionResultsUpdate = "competition:results_update"

	// EventNotification — персональное уведомление о событии
	// (top_result или finished)
	EventNotification = "event:notification"
)

// Топики входящих сообщений
const (
	// NotificationSubscribe привязывает соединение к пользователю для
	// последующей персональной доставки
	NotificationSubscribe = "notification:subscribe"
)
