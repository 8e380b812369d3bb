package notify

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const smsEndpoint = "https://www.fast2sms.com/dev/bulkV2"

// Fast2SMSService sends SMS through the Fast2SMS gateway.
type Fast2SMSService struct {
	APIKey   string
	SenderID string
	Client   *http.Client
}

func NewFast2SMSService(apiKey, senderID string) *Fast2SMSService {
	return &Fast2SMSService{
		APIKey:   apiKey,
		SenderID: senderID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Fast2SMSService) SendMagicLink(phone, linkURL string) error {
	message := fmt.Sprintf("Your project portal link: %s", linkURL)
	return s.send(phone, message)
}

func (s *Fast2SMSService) SendOTP(phone, code string) error {
	message := fmt.Sprintf("Your verification code is %s. Valid for 10 minutes. Do not share this code with anyone.", code)
	return s.send(phone, message)
}

func (s *Fast2SMSService) send(phone, message string) error {
	form := url.Values{}
	form.Set("route", "q")
	form.Set("message", message)
	form.Set("numbers", phone)
	if s.SenderID != "" {
		form.Set("sender_id", s.SenderID)
	}

	req, err := http.NewRequest(http.MethodPost, smsEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
