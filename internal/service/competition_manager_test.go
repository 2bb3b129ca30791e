package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
	"github.com/yourusername/typeracer-api/internal/service/competitionmanager"
)

// ============================================================================
// Моки для тестирования CompetitionManager
// ============================================================================

// MockCompetitionRepository реализует repository.CompetitionRepository
type MockCompetitionRepository struct {
	mock.Mock
}

func (m *MockCompetitionRepository) Create(competition *entity.Competition) error {
	args := m.Called(competition)
	return args.Error(0)
}

func (m *MockCompetitionRepository) GetByID(id uint) (*entity.Competition, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Competition), args.Error(1)
}

func (m *MockCompetitionRepository) GetOpen() ([]entity.Competition, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Competition), args.Error(1)
}

func (m *MockCompetitionRepository) MarkFinished(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockCompetitionRepository) List(filters repository.CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Competition), args.Get(1).(int64), args.Error(2)
}

// MockResultRepository реализует repository.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Save(result *entity.Result) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockResultRepository) GetCompetitionResults(competitionID uint) ([]entity.Result, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Result), args.Error(1)
}

func (m *MockResultRepository) GetParticipants(competitionID uint) ([]uint, error) {
	args := m.Called(competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockResultRepository) GetUserResults(userID uint, limit, offset int) ([]entity.Result, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Result), args.Error(1)
}

// fakeBroadcaster накапливает разосланные события
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) BroadcastEvent(eventType string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

// fakeNotifier записывает вызовы уведомлений.
// Потокобезопасен: top_result приходит из отдельной горутины.
type fakeNotifier struct {
	mu         sync.Mutex
	topResults []topResultCall
	finished   []uint
}

type topResultCall struct {
	CompetitionID uint
	UserID        uint
	WPM           float64
	Rank          int
}

func (f *fakeNotifier) NotifyTopResult(ctx context.Context, competitionID, userID uint, wpm float64, rank int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topResults = append(f.topResults, topResultCall{competitionID, userID, wpm, rank})
	return nil
}

func (f *fakeNotifier) NotifyFinished(ctx context.Context, competitionID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, competitionID)
	return nil
}

func (f *fakeNotifier) topResultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topResults)
}

func (f *fakeNotifier) finishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finished)
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

func newTestManager(competitionRepo *MockCompetitionRepository, resultRepo *MockResultRepository) (*CompetitionManager, *fakeBroadcaster, *fakeNotifier) {
	broadcaster := &fakeBroadcaster{}
	notifier := &fakeNotifier{}
	manager := NewCompetitionManager(&competitionmanager.Dependencies{
		CompetitionRepo: competitionRepo,
		ResultRepo:      resultRepo,
		Broadcaster:     broadcaster,
		Notifier:        notifier,
	})
	return manager, broadcaster, notifier
}

func openCompetition(id uint) *entity.Competition {
	return &entity.Competition{
		ID:       id,
		Language: "en",
		Content:  "the quick brown fox jumps over the lazy dog",
		FinishAt: time.Now().Add(1 * time.Hour),
	}
}

func testResult(userID uint, wpm float64, endOffsetSec int) *entity.Result {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &entity.Result{
		UserID:   userID,
		WPM:      wpm,
		Accuracy: 96,
		EndTime:  base.Add(time.Duration(endOffsetSec) * time.Second),
	}
}

// ============================================================================
// Тесты
// ============================================================================

func TestCompetitionManager_OpenAndListRunning(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()

	// Act
	require.NoError(t, manager.Open(openCompetition(2)))
	require.NoError(t, manager.Open(openCompetition(1)))

	// Assert: список отсортирован по id
	running := manager.ListRunning()
	require.Len(t, running, 2)
	assert.Equal(t, uint(1), running[0].ID)
	assert.Equal(t, uint(2), running[1].ID)
}

func TestCompetitionManager_Open_Duplicate(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()

	require.NoError(t, manager.Open(openCompetition(1)))

	// Act
	err := manager.Open(openCompetition(1))

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCompetitionManager_AddResult_UnknownCompetition(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()

	// Act: соревнование никогда не открывалось
	accepted, err := manager.AddResult(99, testResult(1, 80, 0), true)

	// Assert: явный отказ, а не тихий no-op
	assert.False(t, accepted)
	assert.ErrorIs(t, err, apperrors.ErrCompetitionClosed)
}

func TestCompetitionManager_AddResult_KeepsBestWPM(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	// Act: улучшение, ухудшение, улучшение
	accepted, err := manager.AddResult(1, testResult(5, 80, 0), false)
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = manager.AddResult(1, testResult(5, 70, 10), false)
	require.NoError(t, err)
	assert.False(t, accepted, "Худший результат не должен вытеснять лучший")

	accepted, err = manager.AddResult(1, testResult(5, 90, 20), false)
	require.NoError(t, err)
	assert.True(t, accepted)

	// Assert: сохранен ровно один результат — лучший
	results, err := manager.Results(1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float64(90), results[5].WPM)
}

func TestCompetitionManager_AddResult_EqualWPMKeepsEarlier(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	first := testResult(5, 80, 0)
	second := testResult(5, 80, 30)

	// Act
	accepted, err := manager.AddResult(1, first, false)
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = manager.AddResult(1, second, false)
	require.NoError(t, err)

	// Assert: при равном wpm сохраняется более ранний результат
	assert.False(t, accepted)
	results, err := manager.Results(1)
	require.NoError(t, err)
	assert.Equal(t, first.EndTime, results[5].EndTime)
}

func TestCompetitionManager_AddResult_TopThreeTriggersNotification(t *testing.T) {
	// Arrange
	manager, _, notifier := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	// Act: A входит лидером, B обгоняет, затем A отправляет худший результат
	accepted, err := manager.AddResult(1, testResult(1, 80, 0), true)
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = manager.AddResult(1, testResult(2, 90, 10), true)
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = manager.AddResult(1, testResult(1, 70, 20), true)
	require.NoError(t, err)
	require.False(t, accepted)

	// Assert: два уведомления — по одному на каждое принятое улучшение
	// в тройке; отклоненная отправка уведомления не порождает
	require.Eventually(t, func() bool {
		return notifier.topResultCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	standings, err := manager.Standings(1)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, uint(2), standings[0].UserID)
	assert.Equal(t, uint(1), standings[1].UserID)
}

func TestCompetitionManager_AddResult_OutsideTopThreeSilent(t *testing.T) {
	// Arrange: тройка лидеров уже занята
	manager, _, notifier := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	for i, wpm := range []float64{100, 90, 80} {
		accepted, err := manager.AddResult(1, testResult(uint(i+1), wpm, i), true)
		require.NoError(t, err)
		require.True(t, accepted)
	}
	require.Eventually(t, func() bool {
		return notifier.topResultCount() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Act: четвертый участник занимает ранг 3
	accepted, err := manager.AddResult(1, testResult(4, 70, 30), true)
	require.NoError(t, err)
	require.True(t, accepted)

	// Assert: уведомления для рангов вне тройки нет
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, notifier.topResultCount())
}

func TestCompetitionManager_Close_Idempotent(t *testing.T) {
	// Arrange
	competitionRepo := new(MockCompetitionRepository)
	competitionRepo.On("MarkFinished", uint(1)).Return(nil).Once()

	manager, _, notifier := newTestManager(competitionRepo, new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	// Act
	require.NoError(t, manager.Close(context.Background(), 1))
	require.NoError(t, manager.Close(context.Background(), 1))

	// Assert: повторное закрытие — no-op
	assert.Empty(t, manager.ListRunning())
	assert.Equal(t, 1, notifier.finishedCount())
	competitionRepo.AssertExpectations(t)
}

func TestCompetitionManager_Close_RemovesFromCacheDespiteStoreFailure(t *testing.T) {
	// Arrange: долговечная запись флага не удается
	competitionRepo := new(MockCompetitionRepository)
	competitionRepo.On("MarkFinished", uint(1)).Return(assert.AnError)

	manager, _, notifier := newTestManager(competitionRepo, new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	// Act
	err := manager.Close(context.Background(), 1)

	// Assert: запись все равно удалена из кеша, событие finished разослано
	require.NoError(t, err)
	assert.Empty(t, manager.ListRunning())
	assert.Equal(t, 1, notifier.finishedCount())

	_, err = manager.GetContent(1)
	assert.ErrorIs(t, err, apperrors.ErrCompetitionClosed)
}

func TestCompetitionManager_AutoCloseOnTimer(t *testing.T) {
	// Arrange
	competitionRepo := new(MockCompetitionRepository)
	competitionRepo.On("MarkFinished", uint(1)).Return(nil)

	manager, _, notifier := newTestManager(competitionRepo, new(MockResultRepository))
	defer manager.Shutdown()

	competition := openCompetition(1)
	competition.FinishAt = time.Now().Add(30 * time.Millisecond)

	// Act
	require.NoError(t, manager.Open(competition))

	// Assert: по истечении finishAt соревнование закрывается само
	require.Eventually(t, func() bool {
		return len(manager.ListRunning()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return notifier.finishedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompetitionManager_Restore_ReplaysWithoutNotifications(t *testing.T) {
	// Arrange: в хранилище одно открытое соревнование с дубликатами
	// результатов пользователя 1
	competitionRepo := new(MockCompetitionRepository)
	resultRepo := new(MockResultRepository)

	stored := *openCompetition(1)
	competitionRepo.On("GetOpen").Return([]entity.Competition{stored}, nil)
	resultRepo.On("GetCompetitionResults", uint(1)).Return([]entity.Result{
		*testResult(1, 60, 0),
		*testResult(1, 85, 10),
		*testResult(2, 75, 20),
		*testResult(1, 70, 30),
	}, nil)

	manager, _, notifier := newTestManager(competitionRepo, resultRepo)
	defer manager.Shutdown()

	// Act
	require.NoError(t, manager.Restore(context.Background()))

	// Assert: карта лучших результатов дедуплицирована, уведомлений нет
	results, err := manager.Results(1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, float64(85), results[1].WPM)
	assert.Equal(t, float64(75), results[2].WPM)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, notifier.topResultCount(), "Воспроизведение не должно порождать уведомлений")

	competitionRepo.AssertExpectations(t)
	resultRepo.AssertExpectations(t)
}

func TestCompetitionManager_Restore_DoesNotAutoCloseElapsed(t *testing.T) {
	// Arrange: время закрытия истекло, пока процесс не работал
	competitionRepo := new(MockCompetitionRepository)
	resultRepo := new(MockResultRepository)

	elapsed := *openCompetition(1)
	elapsed.FinishAt = time.Now().Add(-2 * time.Hour)
	competitionRepo.On("GetOpen").Return([]entity.Competition{elapsed}, nil)
	resultRepo.On("GetCompetitionResults", uint(1)).Return([]entity.Result{}, nil)

	manager, _, notifier := newTestManager(competitionRepo, resultRepo)
	defer manager.Shutdown()

	// Act
	require.NoError(t, manager.Restore(context.Background()))

	// Assert: соревнование в кеше и не закрывается автоматически
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, manager.ListRunning(), 1)
	assert.Equal(t, 0, notifier.finishedCount())
	competitionRepo.AssertNotCalled(t, "MarkFinished", uint(1))
}

func TestCompetitionManager_Restore_PreservesOriginalFinishAt(t *testing.T) {
	// Arrange
	competitionRepo := new(MockCompetitionRepository)
	resultRepo := new(MockResultRepository)

	stored := *openCompetition(1)
	originalFinishAt := stored.FinishAt
	competitionRepo.On("GetOpen").Return([]entity.Competition{stored}, nil)
	resultRepo.On("GetCompetitionResults", uint(1)).Return([]entity.Result{}, nil)

	manager, _, _ := newTestManager(competitionRepo, resultRepo)
	defer manager.Shutdown()

	// Act
	require.NoError(t, manager.Restore(context.Background()))

	// Assert: остаток времени жизни переживает перезапуск
	running := manager.ListRunning()
	require.Len(t, running, 1)
	assert.True(t, running[0].FinishAt.Equal(originalFinishAt))
}

func TestCompetitionManager_ConcurrentSubmissions(t *testing.T) {
	// Arrange
	manager, _, _ := newTestManager(new(MockCompetitionRepository), new(MockResultRepository))
	defer manager.Shutdown()
	require.NoError(t, manager.Open(openCompetition(1)))

	// Act: конкурентные отправки от 20 пользователей по 5 результатов
	var wg sync.WaitGroup
	for user := uint(1); user <= 20; user++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := manager.AddResult(1, testResult(userID, float64(40+i*10), i), false)
				assert.NoError(t, err)
			}
		}(user)
	}
	wg.Wait()

	// Assert: по одному лучшему результату на пользователя
	results, err := manager.Results(1)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for userID, result := range results {
		assert.Equal(t, float64(80), result.WPM, "Пользователь %d должен сохранить лучший wpm", userID)
	}
}
