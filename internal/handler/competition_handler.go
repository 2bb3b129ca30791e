package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	"github.com/yourusername/typeracer-api/internal/handler/dto"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
	"github.com/yourusername/typeracer-api/internal/service"
	"github.com/yourusername/typeracer-api/internal/service/competitionmanager"
)

// CompetitionHandler обрабатывает запросы, связанные с соревнованиями
type CompetitionHandler struct {
	competitionRepo    repository.CompetitionRepository
	resultRepo         repository.ResultRepository
	competitionManager *service.CompetitionManager
	defaultDuration    time.Duration
}

// NewCompetitionHandler создает новый обработчик соревнований
func NewCompetitionHandler(
	competitionRepo repository.CompetitionRepository,
	resultRepo repository.ResultRepository,
	competitionManager *service.CompetitionManager,
	defaultDuration time.Duration,
) *CompetitionHandler {
	if defaultDuration <= 0 {
		defaultDuration = competitionmanager.DefaultCompetitionDuration
	}
	return &CompetitionHandler{
		competitionRepo:    competitionRepo,
		resultRepo:         resultRepo,
		competitionManager: competitionManager,
		defaultDuration:    defaultDuration,
	}
}

// CreateCompetitionRequest представляет запрос на создание соревнования
type CreateCompetitionRequest struct {
	Language    string `json:"language" binding:"required,min=2,max=20"`
	Content     string `json:"content" binding:"required,min=50"`
	DurationSec int    `json:"duration_sec" binding:"omitempty,min=60"`
}

// CreateCompetition создает соревнование и сразу открывает его в кеше
func (h *CompetitionHandler) CreateCompetition(c *gin.Context) {
	var req CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	duration := h.defaultDuration
	if req.DurationSec > 0 {
		duration = time.Duration(req.DurationSec) * time.Second
	}

	competition := &entity.Competition{
		Language:  req.Language,
		Content:   req.Content,
		CreatedBy: c.MustGet("user_id").(uint),
		FinishAt:  time.Now().Add(duration),
	}

	if err := h.competitionRepo.Create(competition); err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.competitionManager.Open(competition); err != nil {
		// Запись уже в хранилище; при следующем рестарте restore подхватит её
		log.Printf("[CompetitionHandler] Не удалось открыть соревнование #%d в кеше: %v", competition.ID, err)
	}

	c.JSON(http.StatusCreated, dto.NewCompetitionResponse(competition))
}

// ListCompetitions возвращает список соревнований.
// ?finished=false отдается из кеша открытых соревнований, остальные
// варианты — из хранилища с пагинацией.
func (h *CompetitionHandler) ListCompetitions(c *gin.Context) {
	finishedParam := c.Query("finished")

	if finishedParam == "false" {
		running := h.competitionManager.ListRunning()
		c.JSON(http.StatusOK, gin.H{"competitions": dto.NewListCompetitionResponse(running)})
		return
	}

	filters := repository.CompetitionFilters{Language: c.Query("language")}
	if finishedParam == "true" {
		finished := true
		filters.Finished = &finished
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	competitions, total, err := h.competitionRepo.List(filters, perPage, (page-1)*perPage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedCompetitionResponse{
		Competitions: dto.NewListCompetitionResponse(competitions),
		Total:        total,
		Page:         page,
		PerPage:      perPage,
	})
}

// GetContent возвращает текст для набора. Только для открытых соревнований.
func (h *CompetitionHandler) GetContent(c *gin.Context) {
	competitionID := c.MustGet("competitionID").(uint)

	content, err := h.competitionManager.GetContent(competitionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"competition_id": competitionID, "content": content})
}

// SubmitResultRequest представляет запрос на отправку результата
type SubmitResultRequest struct {
	WPM       float64   `json:"wpm" binding:"required,gt=0"`
	Accuracy  float64   `json:"acc" binding:"required,gt=0,lte=100"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// SubmitResult принимает результат теста в соревновании.
// Сырой результат сначала пишется в хранилище, затем предлагается кешу:
// кеш никогда не содержит результатов, которых нет в хранилище.
func (h *CompetitionHandler) SubmitResult(c *gin.Context) {
	competitionID := c.MustGet("competitionID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}

	// Ранний отказ для закрытых соревнований, чтобы не писать заведомо
	// лишнюю строку
	if _, err := h.competitionManager.GetContent(competitionID); err != nil {
		handleServiceError(c, err)
		return
	}

	result := &entity.Result{
		UserID:        userID,
		CompetitionID: &competitionID,
		WPM:           req.WPM,
		Accuracy:      req.Accuracy,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}

	if err := h.resultRepo.Save(result); err != nil {
		handleServiceError(c, err)
		return
	}

	accepted, err := h.competitionManager.AddResult(competitionID, result, true)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   dto.NewResultResponse(result),
		"improved": accepted,
	})
}

// GetResults возвращает текущий лидерборд открытого соревнования
func (h *CompetitionHandler) GetResults(c *gin.Context) {
	competitionID := c.MustGet("competitionID").(uint)

	standings, err := h.competitionManager.Standings(competitionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competition_id": competitionID,
		"standings":      dto.NewStandingsResponse(standings),
	})
}

// CloseCompetition закрывает соревнование вручную. Идемпотентна: повторное
// закрытие уже закрытого соревнования — успех без изменений.
func (h *CompetitionHandler) CloseCompetition(c *gin.Context) {
	competitionID := c.MustGet("competitionID").(uint)

	// Проверяем существование, чтобы отличить "уже закрыто" от "не существует"
	if _, err := h.competitionRepo.GetByID(competitionID); err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.competitionManager.Close(c.Request.Context(), competitionID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportResults выгружает итоговый лидерборд соревнования в XLSX.
// Лидерборд строится из сырых строк хранилища с дедупликацией по
// лучшему wpm, поэтому работает и для закрытых соревнований.
func (h *CompetitionHandler) ExportResults(c *gin.Context) {
	competitionID := c.MustGet("competitionID").(uint)

	competition, err := h.competitionRepo.GetByID(competitionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	raw, err := h.resultRepo.GetCompetitionResults(competitionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Дедупликация: лучший результат каждого пользователя
	best := make(map[uint]*entity.Result, len(raw))
	for i := range raw {
		result := &raw[i]
		if result.Improves(best[result.UserID]) {
			best[result.UserID] = result
		}
	}
	standings := competitionmanager.Rank(best)

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("[CompetitionHandler] Ошибка при закрытии XLSX файла: %v", err)
		}
	}()

	sheet := "Results"
	file.SetSheetName("Sheet1", sheet)

	headers := []string{"Rank", "User ID", "WPM", "Accuracy", "Finished At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheet, cell, header)
	}

	for row, standing := range standings {
		values := []interface{}{
			row,
			standing.UserID,
			standing.WPM,
			standing.Accuracy,
			standing.EndTime.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			file.SetCellValue(sheet, cell, value)
		}
	}

	filename := fmt.Sprintf("competition_%d_results.xlsx", competition.ID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		log.Printf("[CompetitionHandler] Ошибка при записи XLSX в ответ: %v", err)
	}
}

// handleServiceError преобразует ошибки сервисного слоя в HTTP-ответы
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrCompetitionClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": "Competition not found or already closed"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[Handler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
