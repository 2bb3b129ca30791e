package competitionmanager

import (
	"sort"
	"time"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// Standing представляет одну строку итоговой таблицы соревнования
type Standing struct {
	UserID   uint      `json:"user_id"`
	WPM      float64   `json:"wpm"`
	Accuracy float64   `json:"acc"`
	EndTime  time.Time `json:"end_time"`
}

// Rank строит таблицу лидеров из карты лучших результатов: по убыванию wpm,
// при равенстве — раньше финишировавший выше. Функция чистая: одинаковый
// вход всегда дает одинаковый порядок, сколько бы раз ее ни вызывали.
// Пересчет всегда идет с нуля по полному набору результатов — инкрементальных
// правок нет, поэтому ранги не расходятся с фактическим состоянием.
func Rank(results map[uint]*entity.Result) []Standing {
	standings := make([]Standing, 0, len(results))
	for userID, result := range results {
		standings = append(standings, Standing{
			UserID:   userID,
			WPM:      result.WPM,
			Accuracy: result.Accuracy,
			EndTime:  result.EndTime,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].WPM != standings[j].WPM {
			return standings[i].WPM > standings[j].WPM
		}
		return standings[i].EndTime.Before(standings[j].EndTime)
	})

	return standings
}

// RankOf возвращает позицию пользователя в таблице (0 — лидер)
// или -1, если пользователя в таблице нет.
func RankOf(standings []Standing, userID uint) int {
	for i, s := range standings {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}
