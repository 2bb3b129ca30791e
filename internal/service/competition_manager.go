package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
	"github.com/yourusername/typeracer-api/internal/service/competitionmanager"
	"github.com/yourusername/typeracer-api/internal/websocket"
)

// CompetitionManager владеет состоянием всех открытых соревнований.
// Соревнование находится в кеше тогда и только тогда, когда оно открыто:
// вход через Open/Restore, выход только через Close.
//
// Мутации кеша сериализуются одним RWMutex; чтения идут конкурентно и видят
// согласованный снимок. Принятие результата синхронно, а долговечные записи
// событий/уведомлений и рассылка — отдельная асинхронная фаза, которая может
// быть еще не завершена к моменту возврата из AddResult.
type CompetitionManager struct {
	// Компоненты системы
	scheduler *competitionmanager.Scheduler

	// Зависимости
	competitionRepo repository.CompetitionRepository
	resultRepo      repository.ResultRepository
	broadcaster     competitionmanager.Broadcaster
	notifier        competitionmanager.Notifier
	config          *competitionmanager.Config

	// Состояние открытых соревнований
	mu   sync.RWMutex
	open map[uint]*competitionmanager.OpenCompetition

	// Контекст для управления жизненным циклом
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCompetitionManager создает новый менеджер соревнований
func NewCompetitionManager(deps *competitionmanager.Dependencies) *CompetitionManager {
	ctx, cancel := context.WithCancel(context.Background())

	config := deps.Config
	if config == nil {
		config = competitionmanager.DefaultConfig()
	}

	cm := &CompetitionManager{
		scheduler:       competitionmanager.NewScheduler(config),
		competitionRepo: deps.CompetitionRepo,
		resultRepo:      deps.ResultRepo,
		broadcaster:     deps.Broadcaster,
		notifier:        deps.Notifier,
		config:          config,
		open:            make(map[uint]*competitionmanager.OpenCompetition),
		ctx:             ctx,
		cancel:          cancel,
	}

	// Запускаем слушателя сигналов закрытия
	go cm.handleCloseSignals()

	log.Println("[CompetitionManager] Менеджер соревнований инициализирован")
	return cm
}

// handleCloseSignals обрабатывает сигналы от таймеров закрытия
func (cm *CompetitionManager) handleCloseSignals() {
	closeCh := cm.scheduler.CloseSignals()

	for {
		select {
		case <-cm.ctx.Done():
			log.Println("[CompetitionManager] Завершение работы слушателя сигналов закрытия")
			return

		case competitionID := <-closeCh:
			if err := cm.Close(cm.ctx, competitionID); err != nil {
				log.Printf("[CompetitionManager] Ошибка при закрытии соревнования #%d: %v", competitionID, err)
			}
		}
	}
}

// Open помещает новое открытое соревнование в кеш, взводит таймер закрытия
// на его finishAt и рассылает обновленный список соревнований.
// Возвращает ErrConflict, если соревнование с таким id уже в кеше.
func (cm *CompetitionManager) Open(competition *entity.Competition) error {
	cm.mu.Lock()
	if _, exists := cm.open[competition.ID]; exists {
		cm.mu.Unlock()
		return fmt.Errorf("competition %d is already open: %w", competition.ID, apperrors.ErrConflict)
	}
	cm.open[competition.ID] = competitionmanager.NewOpenCompetition(competition)
	cm.mu.Unlock()

	cm.scheduler.Arm(cm.ctx, competition.ID, competition.FinishAt)

	log.Printf("[CompetitionManager] Соревнование #%d открыто (язык %s, закрытие в %v)",
		competition.ID, competition.Language, competition.FinishAt)

	cm.broadcastList()
	return nil
}

// AddResult принимает результат в соревнование. Для неизвестного или уже
// закрытого соревнования возвращается явный отказ, а не тихий no-op.
//
// Сохраняется максимум один результат на пользователя — с наибольшим wpm.
// Не улучшающая отправка не ошибка: она разрешается детерминированно в пользу
// уже сохраненного результата, и accepted=false сообщает об этом вызывающему.
//
// При notify=true после принятого улучшения пересчитывается полный рейтинг,
// и попадание в тройку лидеров запускает диспетчер уведомлений.
// notify=false используется только при восстановлении после перезапуска,
// чтобы не уведомлять повторно об исторических результатах.
func (cm *CompetitionManager) AddResult(competitionID uint, result *entity.Result, notify bool) (accepted bool, err error) {
	cm.mu.Lock()
	comp, ok := cm.open[competitionID]
	if !ok {
		cm.mu.Unlock()
		return false, fmt.Errorf("competition %d: %w", competitionID, apperrors.ErrCompetitionClosed)
	}

	best := comp.Results[result.UserID]
	if !result.Improves(best) {
		cm.mu.Unlock()
		return false, nil
	}

	comp.Results[result.UserID] = result
	snapshot := comp.Snapshot()
	cm.mu.Unlock()

	// Принятый результат виден читателям и рассылается синхронно
	cm.broadcastResults(competitionID, snapshot)

	if !notify {
		return true, nil
	}

	// Рейтинг всегда пересчитывается с нуля по полному набору лучших
	// результатов, поэтому top_result срабатывает ровно один раз на каждое
	// улучшение, попавшее в тройку.
	standings := competitionmanager.Rank(resultPointers(snapshot))
	rank := competitionmanager.RankOf(standings, result.UserID)
	if rank < 0 || rank >= competitionmanager.TopResultRanks {
		return true, nil
	}

	// Долговечные записи и рассылка уведомлений — асинхронная фаза.
	// Ее сбой фиксируется в логе и не откатывает уже принятый результат.
	go func(userID uint, wpm float64, rank int) {
		if err := cm.notifier.NotifyTopResult(cm.ctx, competitionID, userID, wpm, rank); err != nil {
			log.Printf("[CompetitionManager] Ошибка при отправке уведомления top_result (соревнование #%d, пользователь #%d): %v",
				competitionID, userID, err)
		}
	}(result.UserID, result.WPM, rank)

	return true, nil
}

// GetContent возвращает текст соревнования.
// Контроль доступа участников — внешняя забота.
func (cm *CompetitionManager) GetContent(competitionID uint) (string, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	comp, ok := cm.open[competitionID]
	if !ok {
		return "", fmt.Errorf("competition %d: %w", competitionID, apperrors.ErrCompetitionClosed)
	}
	return comp.Competition.Content, nil
}

// Results возвращает снимок карты лучших результатов соревнования
func (cm *CompetitionManager) Results(competitionID uint) (map[uint]entity.Result, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	comp, ok := cm.open[competitionID]
	if !ok {
		return nil, fmt.Errorf("competition %d: %w", competitionID, apperrors.ErrCompetitionClosed)
	}
	return comp.Snapshot(), nil
}

// Standings возвращает текущую таблицу лидеров соревнования
func (cm *CompetitionManager) Standings(competitionID uint) ([]competitionmanager.Standing, error) {
	results, err := cm.Results(competitionID)
	if err != nil {
		return nil, err
	}
	return competitionmanager.Rank(resultPointers(results)), nil
}

// ListRunning возвращает снимок всех открытых соревнований,
// отсортированный по id
func (cm *CompetitionManager) ListRunning() []entity.Competition {
	cm.mu.RLock()
	competitions := make([]entity.Competition, 0, len(cm.open))
	for _, comp := range cm.open {
		competitions = append(competitions, *comp.Competition)
	}
	cm.mu.RUnlock()

	sort.Slice(competitions, func(i, j int) bool {
		return competitions[i].ID < competitions[j].ID
	})
	return competitions
}

// Close завершает соревнование: помечает его завершенным в хранилище,
// убирает из кеша, рассылает участникам событие finished и обновленный
// список. Повторный вызов для того же id — no-op.
//
// Если долговечная запись флага не удалась, ошибка логируется, но запись из
// кеша все равно удаляется — принятое расхождение, ограничивающее память;
// соревнование остается незавершенным в хранилище до внешнего вмешательства.
func (cm *CompetitionManager) Close(ctx context.Context, competitionID uint) error {
	cm.mu.Lock()
	_, ok := cm.open[competitionID]
	if !ok {
		cm.mu.Unlock()
		return nil
	}
	delete(cm.open, competitionID)
	cm.mu.Unlock()

	cm.scheduler.Disarm(competitionID)

	log.Printf("[CompetitionManager] Закрытие соревнования #%d", competitionID)

	if err := cm.competitionRepo.MarkFinished(competitionID); err != nil {
		log.Printf("[CompetitionManager] Предупреждение: не удалось пометить соревнование #%d завершенным в хранилище: %v",
			competitionID, err)
		// Продолжаем: запись уже удалена из кеша
	}

	if err := cm.notifier.NotifyFinished(ctx, competitionID); err != nil {
		log.Printf("[CompetitionManager] Ошибка при отправке события finished для соревнования #%d: %v",
			competitionID, err)
	}

	cm.broadcastList()
	return nil
}

// Restore восстанавливает кеш после перезапуска процесса. Вызывается один раз
// при старте, до начала обслуживания запросов.
//
// Каждое незавершенное соревнование загружается с его исходно записанным
// finishAt — остаток времени жизни переживает перезапуск, таймер не взводится
// заново на полную продолжительность. Затем уже записанные результаты
// прогоняются через AddResult с notify=false, чтобы собрать карту лучших
// результатов без повторных уведомлений.
//
// Известное ограничение, сохраняемое намеренно: соревнование, чье время
// закрытия истекло, пока процесс не работал, здесь не закрывается — его
// закроет более поздний механизм (ручное закрытие администратором).
func (cm *CompetitionManager) Restore(ctx context.Context) error {
	competitions, err := cm.competitionRepo.GetOpen()
	if err != nil {
		return fmt.Errorf("failed to fetch open competitions: %w", err)
	}

	log.Printf("[CompetitionManager] Восстановление кеша: найдено %d открытых соревнований", len(competitions))

	for i := range competitions {
		competition := competitions[i]

		cm.mu.Lock()
		cm.open[competition.ID] = competitionmanager.NewOpenCompetition(&competition)
		cm.mu.Unlock()

		// Истекшее за время простоя соревнование автоматически не закрывается:
		// таймер со временем в прошлом сработал бы немедленно
		if time.Now().Before(competition.FinishAt) {
			cm.scheduler.Arm(cm.ctx, competition.ID, competition.FinishAt)
		} else {
			log.Printf("[CompetitionManager] Соревнование #%d пережило свое время закрытия (%v), требуется ручное закрытие",
				competition.ID, competition.FinishAt)
		}

		results, err := cm.resultRepo.GetCompetitionResults(competition.ID)
		if err != nil {
			log.Printf("[CompetitionManager] Ошибка при загрузке результатов соревнования #%d: %v", competition.ID, err)
			continue
		}

		replayed := 0
		for j := range results {
			result := results[j]
			accepted, err := cm.AddResult(competition.ID, &result, false)
			if err != nil {
				log.Printf("[CompetitionManager] Ошибка при воспроизведении результата #%d: %v", result.ID, err)
				continue
			}
			if accepted {
				replayed++
			}
		}

		log.Printf("[CompetitionManager] Соревнование #%d восстановлено: %d результатов, %d лучших (закрытие в %v)",
			competition.ID, len(results), replayed, competition.FinishAt)
	}

	return nil
}

// Shutdown корректно завершает работу менеджера соревнований
func (cm *CompetitionManager) Shutdown() {
	log.Println("[CompetitionManager] Завершение работы менеджера соревнований...")
	cm.cancel()
}

// broadcastList рассылает всем клиентам полный снимок открытых соревнований
func (cm *CompetitionManager) broadcastList() {
	payload := map[string]interface{}{
		"competitions": cm.ListRunning(),
	}
	if err := cm.broadcaster.BroadcastEvent(websocket.CompetitionListUpdate, payload); err != nil {
		log.Printf("[CompetitionManager] Ошибка при рассылке списка соревнований: %v", err)
	}
}

// broadcastResults рассылает всем клиентам обновленную карту лучших
// результатов соревнования
func (cm *CompetitionManager) broadcastResults(competitionID uint, results map[uint]entity.Result) {
	payload := map[string]interface{}{
		"competition_id": competitionID,
		"results":        results,
	}
	if err := cm.broadcaster.BroadcastEvent(websocket.CompetitionResultsUpdate, payload); err != nil {
		log.Printf("[CompetitionManager] Ошибка при рассылке результатов соревнования #%d: %v", competitionID, err)
	}
}

// resultPointers переводит снимок карты результатов в форму,
// которую принимает движок рейтинга
func resultPointers(results map[uint]entity.Result) map[uint]*entity.Result {
	converted := make(map[uint]*entity.Result, len(results))
	for userID := range results {
		result := results[userID]
		converted[userID] = &result
	}
	return converted
}
