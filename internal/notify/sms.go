package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicmirror/civic-backend/internal/logger"
)

// SMSSender — контракт уведомлений вида "выстрелил и забыл". Ошибка отправки
// логируется и игнорируется, откатов операций из-за SMS не бывает.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// TwilioClient отправляет SMS через Twilio-совместимый REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioClient создаёт клиента с ограниченным таймаутом.
func NewTwilioClient(accountSID, authToken, from string, timeout time.Duration) *TwilioClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBaseURL переопределяет адрес API (для тестов).
func (c *TwilioClient) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Send отправляет одно SMS сообщение.
func (c *TwilioClient) Send(ctx context.Context, to, message string) error {
	if c.accountSID == "" || c.authToken == "" || c.from == "" {
		return fmt.Errorf("notify: twilio не сконфигурирован")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: код ответа %d", resp.StatusCode)
	}

	return nil
}

// LogSender пишет сообщение в лог вместо отправки. Используется вне production,
// как и в остальных best-effort коллабораторах.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, message string) error {
	if logger.Log != nil {
		logger.Log.WithField("to", to).Infof("SMS (dry-run): %s", message)
	}
	return nil
}
