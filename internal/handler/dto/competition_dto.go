package dto

import (
	"time"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/service/competitionmanager"
)

// CompetitionResponse представляет соревнование в формате для ответа клиенту.
// Текст для набора не включается: клиент запрашивает его отдельно.
type CompetitionResponse struct {
	ID          uint      `json:"id"`
	Language    string    `json:"language"`
	CreatedBy   uint      `json:"created_by"`
	FinishAt    time.Time `json:"finish_at"`
	DurationSec int       `json:"duration_sec"`
	Finished    bool      `json:"finished"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCompetitionResponse создает DTO для соревнования
func NewCompetitionResponse(competition *entity.Competition) *CompetitionResponse {
	return &CompetitionResponse{
		ID:          competition.ID,
		Language:    competition.Language,
		CreatedBy:   competition.CreatedBy,
		FinishAt:    competition.FinishAt,
		DurationSec: int(competition.Duration().Seconds()),
		Finished:    competition.Finished,
		CreatedAt:   competition.CreatedAt,
	}
}

// NewListCompetitionResponse создает DTO для списка соревнований
func NewListCompetitionResponse(competitions []entity.Competition) []*CompetitionResponse {
	responses := make([]*CompetitionResponse, len(competitions))
	for i := range competitions {
		responses[i] = NewCompetitionResponse(&competitions[i])
	}
	return responses
}

// PaginatedCompetitionResponse представляет пагинированный список соревнований
type PaginatedCompetitionResponse struct {
	Competitions []*CompetitionResponse `json:"competitions"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	PerPage      int                    `json:"per_page"`
}

// StandingResponse представляет одну строку лидерборда
type StandingResponse struct {
	Rank     int       `json:"rank"`
	UserID   uint      `json:"user_id"`
	WPM      float64   `json:"wpm"`
	Accuracy float64   `json:"acc"`
	EndTime  time.Time `json:"end_time"`
}

// NewStandingsResponse создает DTO лидерборда из отсортированных строк
func NewStandingsResponse(standings []competitionmanager.Standing) []*StandingResponse {
	responses := make([]*StandingResponse, len(standings))
	for i, s := range standings {
		responses[i] = &StandingResponse{
			Rank:     i,
			UserID:   s.UserID,
			WPM:      s.WPM,
			Accuracy: s.Accuracy,
			EndTime:  s.EndTime,
		}
	}
	return responses
}

// ResultResponse представляет результат теста в формате для ответа клиенту
type ResultResponse struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	CompetitionID *uint     `json:"competition_id,omitempty"`
	WPM           float64   `json:"wpm"`
	Accuracy      float64   `json:"acc"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// NewResultResponse создает DTO для результата
func NewResultResponse(result *entity.Result) *ResultResponse {
	return &ResultResponse{
		ID:            result.ID,
		UserID:        result.UserID,
		CompetitionID: result.CompetitionID,
		WPM:           result.WPM,
		Accuracy:      result.Accuracy,
		StartTime:     result.StartTime,
		EndTime:       result.EndTime,
	}
}

// NewListResultResponse создает DTO для списка результатов
func NewListResultResponse(results []entity.Result) []*ResultResponse {
	responses := make([]*ResultResponse, len(results))
	for i := range results {
		responses[i] = NewResultResponse(&results[i])
	}
	return responses
}
