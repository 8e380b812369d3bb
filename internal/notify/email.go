package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEmailEndpoint = "https://api.postmarkapp.com/email"

// HTTPEmailService sends transactional email through a Postmark-compatible
// HTTP API.
type HTTPEmailService struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func NewHTTPEmailService(apiKey, from, endpoint string) *HTTPEmailService {
	if endpoint == "" {
		endpoint = defaultEmailEndpoint
	}
	return &HTTPEmailService{
		APIKey:   apiKey,
		From:     from,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPEmailService) SendMagicLink(to, url string, branding map[string]any) error {
	subject := "Your project portal link"
	if name, ok := branding["company_name"].(string); ok && name != "" {
		subject = fmt.Sprintf("Your %s project portal link", name)
	}
	body := fmt.Sprintf("Open your project portal here:\n\n%s\n\nThis link is personal to you; do not forward it.", url)
	return s.send(to, subject, body)
}

func (s *HTTPEmailService) SendOTP(to, code string, branding map[string]any) error {
	subject := "Your verification code"
	if name, ok := branding["company_name"].(string); ok && name != "" {
		subject = fmt.Sprintf("Your %s verification code", name)
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes. Do not share this code with anyone.", code)
	return s.send(to, subject, body)
}

func (s *HTTPEmailService) send(to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"From":     s.From,
		"To":       to,
		"Subject":  subject,
		"TextBody": body,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email gateway returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
