// Package handler - HTTP API над каталогом, сессией, библиотекой и классификатором сцен.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storybook-server/internal/catalog"
	"storybook-server/internal/domain"
	"storybook-server/internal/generator"
	"storybook-server/internal/scene"
)

// StateStore - операции хранилища состояния, нужные HTTP слою.
type StateStore interface {
	Snapshot() domain.Snapshot
	Library() []domain.Story
	FindStory(id string) (*domain.Story, error)
	SelectCharacter(ch *domain.Character)
	SetTopic(topic string)
	BeginGeneration() (domain.Session, error)
	CompleteGeneration(story *domain.Story)
	FailGeneration()
	SaveToLibrary(story *domain.Story) error
	SaveCurrentStory() (*domain.Story, error)
	DeleteFromLibrary(id string) bool
	UpdatePages(id string, pages []domain.StoryPage) (bool, error)
	ResetSession()
}

// StoryHandler обрабатывает HTTP запросы приложения.
type StoryHandler struct {
	store      StateStore
	catalog    *catalog.Catalog
	generator  generator.Generator
	classifier *scene.Classifier
	ws         http.Handler
	logger     *zap.Logger
}

// NewStoryHandler создает StoryHandler. ws может быть nil, тогда маршрут WebSocket не регистрируется.
func NewStoryHandler(store StateStore, cat *catalog.Catalog, gen generator.Generator, classifier *scene.Classifier, ws http.Handler, logger *zap.Logger) *StoryHandler {
	if classifier == nil {
		classifier = scene.Default
	}
	return &StoryHandler{
		store:      store,
		catalog:    cat,
		generator:  gen,
		classifier: classifier,
		ws:         ws,
		logger:     logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API. generateLimiter применяется только к генерации, может быть nil.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine, generateLimiter gin.HandlerFunc) {
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	api := router.Group("/api/v1")
	{
		api.GET("/characters", h.listCharacters)
		api.POST("/scenes/classify", h.classifyScene)

		session := api.Group("/session")
		{
			session.GET("", h.getSession)
			session.PUT("/character", h.selectCharacter)
			session.PUT("/topic", h.setTopic)
			if generateLimiter != nil {
				session.POST("/generate", generateLimiter, h.generateStory)
			} else {
				session.POST("/generate", h.generateStory)
			}
			session.DELETE("", h.resetSession)
		}

		library := api.Group("/library")
		{
			library.GET("", h.listLibrary)
			library.POST("", h.saveStory)
			library.GET("/:id", h.getStory)
			library.DELETE("/:id", h.deleteStory)
			library.PUT("/:id/pages", h.updatePages)
		}

		if h.ws != nil {
			api.GET("/ws", gin.WrapH(h.ws))
		}
	}
}
