package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/typeracer-api/internal/handler/dto"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
	"github.com/yourusername/typeracer-api/internal/service"
)

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUser возвращает профиль пользователя
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	user, err := h.userService.GetUser(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// DeleteUser удаляет пользователя. Разрешено самому пользователю
// или администратору.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID := c.MustGet("userID").(uint)
	callerID := c.MustGet("user_id").(uint)

	if targetID != callerID && !c.GetBool("is_admin") {
		handleServiceError(c, fmt.Errorf("%w: cannot delete another user", apperrors.ErrForbidden))
		return
	}

	if err := h.userService.DeleteUser(targetID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUserResults возвращает пагинированную историю результатов пользователя
func (h *UserHandler) GetUserResults(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	results, err := h.userService.GetUserResults(userID, page, perPage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"results": dto.NewListResultResponse(results),
	})
}
