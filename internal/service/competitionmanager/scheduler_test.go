package competitionmanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_FiresAtFinishAt(t *testing.T) {
	// Arrange
	scheduler := NewScheduler(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Act
	scheduler.Arm(ctx, 42, time.Now().Add(20*time.Millisecond))

	// Assert
	select {
	case id := <-scheduler.CloseSignals():
		assert.Equal(t, uint(42), id)
	case <-time.After(2 * time.Second):
		t.Fatal("Сигнал закрытия не пришел")
	}
}

func TestScheduler_DisarmCancelsTimer(t *testing.T) {
	// Arrange
	scheduler := NewScheduler(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Arm(ctx, 7, time.Now().Add(50*time.Millisecond))

	// Act
	scheduler.Disarm(7)

	// Assert: после снятия таймера сигнал не приходит
	select {
	case id := <-scheduler.CloseSignals():
		t.Fatalf("Неожиданный сигнал закрытия для #%d", id)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScheduler_IndependentTimers(t *testing.T) {
	// Arrange: два соревнования с разным временем закрытия
	scheduler := NewScheduler(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Arm(ctx, 1, time.Now().Add(10*time.Millisecond))
	scheduler.Arm(ctx, 2, time.Now().Add(40*time.Millisecond))

	// Act
	var got []uint
	for i := 0; i < 2; i++ {
		select {
		case id := <-scheduler.CloseSignals():
			got = append(got, id)
		case <-time.After(2 * time.Second):
			t.Fatal("Не все сигналы закрытия пришли")
		}
	}

	// Assert: сигналы приходят в порядке наступления finishAt
	require.Len(t, got, 2)
	assert.Equal(t, uint(1), got[0])
	assert.Equal(t, uint(2), got[1])
}

func TestScheduler_ParentContextCancelStopsTimers(t *testing.T) {
	// Arrange
	scheduler := NewScheduler(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	scheduler.Arm(ctx, 9, time.Now().Add(30*time.Millisecond))

	// Act: отмена корневого контекста снимает все таймеры
	cancel()

	// Assert
	select {
	case id := <-scheduler.CloseSignals():
		t.Fatalf("Неожиданный сигнал закрытия для #%d", id)
	case <-time.After(150 * time.Millisecond):
	}
}
