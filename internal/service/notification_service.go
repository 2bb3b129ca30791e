package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	"github.com/yourusername/typeracer-api/internal/websocket"
)

// LivePusher определяет возможности живой доставки, необходимые диспетчеру
// уведомлений. Реализуется websocket.Manager, в тестах подменяется фейком.
type LivePusher interface {
	SendEventToUser(userID string, eventType string, data interface{}) error
	HasConnection(userID string) bool
}

// NotificationService создает долговечные события и уведомления и доставляет
// их по живым соединениям. Список участников берется из хранилища, а не из
// кеша, чтобы охватить и тех, кто отправлял результаты до перезапуска.
//
// Доставка best-effort: долговечные уведомления накапливаются для забора
// позже (at-least-once), живая доставка — at-most-once. Сбой долговечной
// записи обрывает оставшуюся рассылку цикла; частичная доставка возможна,
// повторов и откатов нет.
type NotificationService struct {
	eventRepo        repository.EventRepository
	notificationRepo repository.NotificationRepository
	resultRepo       repository.ResultRepository
	pusher           LivePusher
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(
	eventRepo repository.EventRepository,
	notificationRepo repository.NotificationRepository,
	resultRepo repository.ResultRepository,
	pusher LivePusher,
) *NotificationService {
	return &NotificationService{
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		resultRepo:       resultRepo,
		pusher:           pusher,
	}
}

// NotifyTopResult создает событие top_result и рассылает его участникам
// соревнования
func (s *NotificationService) NotifyTopResult(ctx context.Context, competitionID, userID uint, wpm float64, rank int) error {
	event := entity.NewTopResultEvent(competitionID, userID, wpm, rank)
	return s.fanOut(ctx, event)
}

// NotifyFinished создает событие finished и рассылает его участникам
// соревнования
func (s *NotificationService) NotifyFinished(ctx context.Context, competitionID uint) error {
	event := entity.NewFinishedEvent(competitionID)
	return s.fanOut(ctx, event)
}

// fanOut сохраняет событие, создает по уведомлению на каждого участника и
// немедленно доставляет событие тем, у кого есть живое соединение.
// Участники без соединения накапливают неподтвержденное уведомление.
func (s *NotificationService) fanOut(ctx context.Context, event *entity.Event) error {
	if err := s.eventRepo.Create(event); err != nil {
		log.Printf("[NotificationService] Ошибка при сохранении события %s для соревнования #%d: %v",
			event.Type, event.CompetitionID, err)
		return fmt.Errorf("failed to persist %s event: %w", event.Type, err)
	}

	participants, err := s.resultRepo.GetParticipants(event.CompetitionID)
	if err != nil {
		log.Printf("[NotificationService] Ошибка при получении участников соревнования #%d: %v",
			event.CompetitionID, err)
		return fmt.Errorf("failed to fetch participants: %w", err)
	}

	log.Printf("[NotificationService] Рассылка события %s (#%d) %d участникам соревнования #%d",
		event.Type, event.ID, len(participants), event.CompetitionID)

	for _, participantID := range participants {
		notification := &entity.Notification{
			UserID:  participantID,
			EventID: event.ID,
		}
		if err := s.notificationRepo.Create(notification); err != nil {
			// Сбой долговечной записи обрывает остаток рассылки этого цикла
			log.Printf("[NotificationService] Ошибка при создании уведомления для пользователя #%d (событие #%d): %v",
				participantID, event.ID, err)
			return fmt.Errorf("failed to persist notification for user %d: %w", participantID, err)
		}

		userKey := strconv.FormatUint(uint64(participantID), 10)
		if !s.pusher.HasConnection(userKey) {
			continue
		}
		payload := eventPayload(event, notification)
		if err := s.pusher.SendEventToUser(userKey, websocket.EventNotification, payload); err != nil {
			// Транспортный сбой проглатывается: уведомление уже записано
			log.Printf("[NotificationService] Не удалось доставить событие #%d пользователю #%d: %v",
				event.ID, participantID, err)
		}
	}

	return nil
}

// Unacknowledged возвращает неподтвержденные уведомления пользователя
// вместе с их событиями
func (s *NotificationService) Unacknowledged(userID uint) ([]map[string]interface{}, error) {
	notifications, err := s.notificationRepo.GetUnacknowledged(userID)
	if err != nil {
		return nil, err
	}

	payloads := make([]map[string]interface{}, 0, len(notifications))
	for i := range notifications {
		notification := notifications[i]
		event, err := s.eventRepo.GetByID(notification.EventID)
		if err != nil {
			log.Printf("[NotificationService] Ошибка при загрузке события #%d для уведомления #%d: %v",
				notification.EventID, notification.ID, err)
			continue
		}
		payloads = append(payloads, eventPayload(event, &notification))
	}
	return payloads, nil
}

// Acknowledge подтверждает получение уведомления
func (s *NotificationService) Acknowledge(id uint, userID uint) error {
	return s.notificationRepo.Acknowledge(id, userID)
}

// eventPayload собирает полезную нагрузку уведомления. Набор полей задается
// вариантом события, выбранным при его создании.
func eventPayload(event *entity.Event, notification *entity.Notification) map[string]interface{} {
	payload := map[string]interface{}{
		"event_id":        event.ID,
		"notification_id": notification.ID,
		"type":            event.Type,
		"competition_id":  event.CompetitionID,
	}
	if event.IsTopResult() {
		payload["user_id"] = event.UserID
		payload["wpm"] = event.WPM
		payload["rank"] = event.Rank
	}
	return payload
}
