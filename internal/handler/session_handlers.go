package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/middleware"
)

// @Summary Список персонажей
// @Tags catalog
// @Produce json
// @Success 200 {object} characterListResponse
// @Router /api/v1/characters [get]
func (h *StoryHandler) listCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, characterListResponse{Characters: h.catalog.List()})
}

// @Summary Текущее состояние сессии
// @Tags session
// @Produce json
// @Success 200 {object} domain.Session
// @Router /api/v1/session [get]
func (h *StoryHandler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().Session)
}

// @Summary Выбор персонажа
// @Description characterId = null снимает выбор
// @Tags session
// @Accept json
// @Produce json
// @Success 200 {object} domain.Session
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/session/character [put]
func (h *StoryHandler) selectCharacter(c *gin.Context) {
	var req selectCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.CharacterID == nil {
		h.store.SelectCharacter(nil)
		c.JSON(http.StatusOK, h.store.Snapshot().Session)
		return
	}
	ch, err := h.lookupCharacter(*req.CharacterID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	h.store.SelectCharacter(ch)
	c.JSON(http.StatusOK, h.store.Snapshot().Session)
}

// @Summary Тема истории
// @Tags session
// @Accept json
// @Produce json
// @Success 200 {object} domain.Session
// @Router /api/v1/session/topic [put]
func (h *StoryHandler) setTopic(c *gin.Context) {
	var req setTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.store.SetTopic(strings.TrimSpace(req.Topic))
	c.JSON(http.StatusOK, h.store.Snapshot().Session)
}

// @Summary Генерация истории
// @Description Использует персонажа и тему сессии, тело запроса может их переопределить.
// @Description Ошибки AI не возвращаются: вместо них приходит упрощенная история (origin = fallback).
// @Tags session
// @Accept json
// @Produce json
// @Success 200 {object} domain.Story
// @Failure 400 {object} ErrorResponse "Персонаж не выбран"
// @Failure 409 {object} ErrorResponse "Генерация уже идет"
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/session/generate [post]
func (h *StoryHandler) generateStory(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	log := h.logger.With(zap.String("request_id", middleware.GetRequestID(c)))

	if req.CharacterID != "" {
		ch, err := h.lookupCharacter(req.CharacterID)
		if err != nil {
			handleServiceError(c, h.logger, err)
			return
		}
		h.store.SelectCharacter(ch)
	}
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		h.store.SetTopic(topic)
	}

	errNoCharacter := fmt.Errorf("%w: no character selected", domain.ErrInvalidInput)
	if h.store.Snapshot().Session.SelectedCharacter == nil {
		handleServiceError(c, h.logger, errNoCharacter)
		return
	}
	// Персонаж и тема берутся из сессии на момент подъема флага, а не из предварительной проверки
	sess, err := h.store.BeginGeneration()
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	completed := false
	defer func() {
		// Флаг генерации снимается на любом пути выхода, включая панику
		if !completed {
			h.store.FailGeneration()
		}
	}()

	if sess.SelectedCharacter == nil {
		handleServiceError(c, h.logger, errNoCharacter)
		return
	}

	log.Info("Generating story",
		zap.String("character_id", sess.SelectedCharacter.ID),
		zap.String("topic", sess.RecordedTopic))
	story, err := h.generator.Generate(c.Request.Context(), sess.SelectedCharacter, sess.RecordedTopic)
	if err != nil {
		log.Warn("Story generation failed", zap.Error(err))
		handleServiceError(c, h.logger, err)
		return
	}
	h.store.CompleteGeneration(story)
	completed = true

	log.Info("Story generated",
		zap.String("story_id", story.ID),
		zap.String("origin", string(story.Origin)),
		zap.Int("pages", len(story.Pages)))
	c.JSON(http.StatusOK, story)
}

// @Summary Сброс сессии
// @Tags session
// @Success 204
// @Router /api/v1/session [delete]
func (h *StoryHandler) resetSession(c *gin.Context) {
	h.store.ResetSession()
	c.Status(http.StatusNoContent)
}

// @Summary Классификация сцены
// @Tags scenes
// @Accept json
// @Produce json
// @Success 200 {object} classifyResponse
// @Router /api/v1/scenes/classify [post]
func (h *StoryHandler) classifyScene(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, classifyResponse{
		Category: string(h.classifier.Classify(req.Text)),
		ImageURL: h.classifier.SelectIllustration(req.Text, req.PageIndex),
	})
}

func (h *StoryHandler) lookupCharacter(id string) (*domain.Character, error) {
	ch, err := h.catalog.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown character %q", domain.ErrInvalidInput, id)
	}
	return ch, err
}
