package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/domain"
)

// @Summary Библиотека историй
// @Tags library
// @Produce json
// @Success 200 {object} libraryResponse
// @Router /api/v1/library [get]
func (h *StoryHandler) listLibrary(c *gin.Context) {
	c.JSON(http.StatusOK, libraryResponse{SavedStories: h.store.Library()})
}

// @Summary Сохранение истории
// @Description Без тела сохраняется текущая история сессии. Повторное сохранение того же id ничего не меняет.
// @Tags library
// @Accept json
// @Produce json
// @Success 201 {object} domain.Story
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Нет текущей истории"
// @Router /api/v1/library [post]
func (h *StoryHandler) saveStory(c *gin.Context) {
	if c.Request.ContentLength == 0 {
		story, err := h.store.SaveCurrentStory()
		if err != nil {
			handleServiceError(c, h.logger, err)
			return
		}
		h.logger.Info("Current story saved to library", zap.String("story_id", story.ID))
		c.JSON(http.StatusCreated, story)
		return
	}

	var story domain.Story
	if err := c.ShouldBindJSON(&story); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.store.SaveToLibrary(&story); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	h.logger.Info("Story saved to library", zap.String("story_id", story.ID))
	c.JSON(http.StatusCreated, story)
}

// @Summary История по id
// @Tags library
// @Produce json
// @Success 200 {object} domain.Story
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/library/{id} [get]
func (h *StoryHandler) getStory(c *gin.Context) {
	story, err := h.store.FindStory(c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// @Summary Удаление истории
// @Description Неизвестный id не является ошибкой.
// @Tags library
// @Success 204
// @Router /api/v1/library/{id} [delete]
func (h *StoryHandler) deleteStory(c *gin.Context) {
	id := c.Param("id")
	if h.store.DeleteFromLibrary(id) {
		h.logger.Info("Story deleted from library", zap.String("story_id", id))
	}
	c.Status(http.StatusNoContent)
}

// @Summary Замена страниц истории
// @Description Меняет страницы истории в библиотеке и/или текущей истории сессии. Неизвестный id - 204 без изменений.
// @Tags library
// @Accept json
// @Produce json
// @Success 200 {object} domain.Story
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/library/{id}/pages [put]
func (h *StoryHandler) updatePages(c *gin.Context) {
	var req updatePagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	id := c.Param("id")
	found, err := h.store.UpdatePages(id, req.Pages)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	story, err := h.store.FindStory(id)
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, story)
}
