package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, попытка открыть
	// соревнование с уже существующим id).
	ErrConflict = errors.New("resource state conflict")

	// ErrCompetitionClosed используется при отправке результата в закрытое или
	// неизвестное соревнование. Отдается вызывающему как явный отказ, а не no-op.
	ErrCompetitionClosed = errors.New("competition is closed or unknown")
)
