package competitionmanager

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler отвечает за таймеры автозакрытия соревнований.
// У каждого открытого соревнования ровно одна задача закрытия,
// взведенная на его абсолютное время finishAt.
type Scheduler struct {
	// Настройки
	config *Config

	// Внутреннее состояние
	closeCancels sync.Map // map[uint]context.CancelFunc

	// Канал для сигнализации о наступлении времени закрытия
	closeCh chan uint
}

// NewScheduler создает новый планировщик закрытий
func NewScheduler(config *Config) *Scheduler {
	return &Scheduler{
		config:  config,
		closeCh: make(chan uint, config.CloseSignalBuffer),
	}
}

// CloseSignals возвращает канал, в который приходят ID соревнований,
// чье время закрытия наступило
func (s *Scheduler) CloseSignals() <-chan uint {
	return s.closeCh
}

// Arm взводит задачу закрытия на абсолютное время finishAt.
// Таймеры разных соревнований независимы и не блокируют друг друга.
func (s *Scheduler) Arm(ctx context.Context, competitionID uint, finishAt time.Time) {
	closeCtx, closeCancel := context.WithCancel(ctx)
	s.closeCancels.Store(competitionID, closeCancel)

	go s.runCloseTimer(closeCtx, competitionID, finishAt)

	log.Printf("[Scheduler] Соревнование #%d: закрытие запланировано на %v", competitionID, finishAt)
}

// Disarm снимает задачу закрытия, если она есть. Используется при ручном
// закрытии соревнования до истечения его времени.
func (s *Scheduler) Disarm(competitionID uint) {
	cancel, ok := s.closeCancels.LoadAndDelete(competitionID)
	if !ok {
		return
	}
	cancel.(context.CancelFunc)()
	log.Printf("[Scheduler] Таймер закрытия соревнования #%d снят", competitionID)
}

// runCloseTimer ждет наступления finishAt и сигнализирует менеджеру
func (s *Scheduler) runCloseTimer(ctx context.Context, competitionID uint, finishAt time.Time) {
	defer s.closeCancels.Delete(competitionID)

	select {
	case <-time.After(time.Until(finishAt)):
		// Неблокирующая отправка на случай переполнения канала
		select {
		case s.closeCh <- competitionID:
		default:
			log.Printf("[Scheduler] Предупреждение: не удалось отправить сигнал закрытия соревнования #%d (канал переполнен?)", competitionID)
		}
	case <-ctx.Done():
		log.Printf("[Scheduler] Таймер закрытия соревнования #%d отменен", competitionID)
	}
}
