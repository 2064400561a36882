package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// Sana рендерит изображение на SANA сервере, сохраняет файл и возвращает его публичный адрес.
type Sana struct {
	log           *zap.Logger
	baseURL       string
	client        *http.Client
	savePath      string
	publicBaseURL string
	styleSuffix   string
	ratio         string
}

// sanaRequest - тело запроса к SANA API.
type sanaRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
	Seed   int64  `json:"seed,omitempty"`
}

// NewSana создает клиент SANA. Каталог сохранения создается при необходимости.
func NewSana(cfg config.ImageGenConfig, log *zap.Logger) (*Sana, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("image base URL (IMAGE_BASE_URL) is not configured")
	}
	if cfg.SavePath == "" {
		return nil, errors.New("image save path (IMAGE_SAVE_PATH) is not configured")
	}
	if err := os.MkdirAll(cfg.SavePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir %s: %w", cfg.SavePath, err)
	}
	return &Sana{
		log:           log,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		client:        &http.Client{Timeout: cfg.Timeout},
		savePath:      cfg.SavePath,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		styleSuffix:   cfg.StyleSuffix,
		ratio:         ratio(cfg.Width, cfg.Height),
	}, nil
}

func ratio(w, h int) string {
	if w <= 0 || h <= 0 {
		return "4:3"
	}
	a, b := w, h
	for b != 0 {
		a, b = b, a%b
	}
	return strconv.Itoa(w/a) + ":" + strconv.Itoa(h/a)
}

// GenerateImage вызывает SANA API и сохраняет результат в файл.
func (s *Sana) GenerateImage(ctx context.Context, prompt string, seed int64) (string, error) {
	fullPrompt := prompt + s.styleSuffix
	ref := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fullPrompt+"#"+strconv.FormatInt(seed, 10))).String()
	log := s.log.With(zap.String("image_reference", ref), zap.Int64("seed", seed))

	data, err := s.callAPI(ctx, fullPrompt, seed)
	if err != nil {
		countRequest("sana", err)
		log.Error("SANA API call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(data) == 0 {
		countRequest("sana", ErrImageGenerationFailed)
		return "", fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}

	fileName := ref + ".jpg"
	filePath := filepath.Join(s.savePath, fileName)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		countRequest("sana", err)
		log.Error("Failed to save image to file", zap.String("path", filePath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}
	countRequest("sana", nil)

	url := s.publicBaseURL + "/" + fileName
	log.Info("Image saved", zap.String("path", filePath), zap.String("url", url), zap.Int("size_bytes", len(data)))
	return url, nil
}

func (s *Sana) callAPI(ctx context.Context, prompt string, seed int64) ([]byte, error) {
	body, err := json.Marshal(sanaRequest{Prompt: prompt, Ratio: s.ratio, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	return data, nil
}
