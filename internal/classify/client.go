package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client — адаптер внешнего классификатора изображений. Сервис best-effort:
// любая его ошибка гасится вызывающей стороной политикой фолбэка, создание
// обращения из-за классификации не падает никогда.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента. Таймаут ограничивает весь вызов,
// чтобы классификация не могла заблокировать создание обращения.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Data []string `json:"data"`
}

type prediction struct {
	Label string `json:"label"`
}

type predictResponse struct {
	Data []prediction `json:"data"`
}

// Classify отправляет изображение классификатору и возвращает верхнюю метку.
// Метки отсортированы по уверенности модели, берём первую.
func (c *Client) Classify(ctx context.Context, image []byte) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("classify: baseURL не задан")
	}
	if len(image) == 0 {
		return "", fmt.Errorf("classify: пустое изображение")
	}

	payload := predictRequest{
		Data: []string{base64.StdEncoding.EncodeToString(image)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/api/predict"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classify: код ответа %d", resp.StatusCode)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("classify: некорректный ответ: %w", err)
	}

	if len(result.Data) == 0 || result.Data[0].Label == "" {
		return "", fmt.Errorf("classify: пустой список предсказаний")
	}

	return result.Data[0].Label, nil
}
