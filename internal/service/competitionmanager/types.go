package competitionmanager

import (
	"context"
	"time"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
)

// Constants for default values
const (
	// DefaultCompetitionDuration — время жизни соревнования, если не задано иное
	DefaultCompetitionDuration = 24 * time.Hour

	// TopResultRanks — количество верхних позиций, попадание в которые
	// порождает событие top_result (ранги 0..TopResultRanks-1)
	TopResultRanks = 3
)

// Config содержит настройки компонентов CompetitionManager
type Config struct {
	// CompetitionDuration — продолжительность соревнования с момента открытия
	CompetitionDuration time.Duration

	// CloseSignalBuffer — размер буфера канала сигналов закрытия
	CloseSignalBuffer int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CompetitionDuration: DefaultCompetitionDuration,
		CloseSignalBuffer:   16,
	}
}

// Broadcaster определяет интерфейс широковещательного канала,
// необходимый менеджеру соревнований. Реализуется websocket.Manager,
// в тестах подменяется фейком.
type Broadcaster interface {
	BroadcastEvent(eventType string, data interface{}) error
}

// Notifier определяет интерфейс диспетчера уведомлений.
// Реализуется NotificationService, в тестах подменяется фейком.
type Notifier interface {
	NotifyTopResult(ctx context.Context, competitionID, userID uint, wpm float64, rank int) error
	NotifyFinished(ctx context.Context, competitionID uint) error
}

// Dependencies содержит зависимости для CompetitionManager
type Dependencies struct {
	CompetitionRepo repository.CompetitionRepository
	ResultRepo      repository.ResultRepository
	Broadcaster     Broadcaster
	Notifier        Notifier
	Config          *Config
}

// OpenCompetition хранит состояние одного открытого соревнования в кеше:
// саму запись и лучший результат каждого участника.
type OpenCompetition struct {
	Competition *entity.Competition

	// Results хранит максимум один результат на пользователя —
	// результат с наибольшим wpm из всех принятых.
	Results map[uint]*entity.Result
}

// NewOpenCompetition создает состояние открытого соревнования с пустым
// набором результатов
func NewOpenCompetition(competition *entity.Competition) *OpenCompetition {
	return &OpenCompetition{
		Competition: competition,
		Results:     make(map[uint]*entity.Result),
	}
}

// Snapshot возвращает копию карты лучших результатов. Копия отвязана от
// внутреннего состояния и безопасна для отдачи наружу после снятия блокировки.
func (o *OpenCompetition) Snapshot() map[uint]entity.Result {
	snapshot := make(map[uint]entity.Result, len(o.Results))
	for userID, result := range o.Results {
		snapshot[userID] = *result
	}
	return snapshot
}
