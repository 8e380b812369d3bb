package notify

import (
	"log"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/internal/models"
)

// EmailProvider delivers portal emails.
type EmailProvider interface {
	SendMagicLink(to, url string, branding map[string]any) error
	SendOTP(to, code string, branding map[string]any) error
}

// SMSProvider delivers portal SMS messages.
type SMSProvider interface {
	SendMagicLink(phone, url string) error
	SendOTP(phone, code string) error
}

// Dispatcher fans deliveries out to the configured providers on background
// goroutines. Delivery is fire-and-forget: a failed send is logged and
// never fails the link/session/OTP state change that triggered it.
type Dispatcher struct {
	Email EmailProvider
	SMS   SMSProvider
}

func NewDispatcher(email EmailProvider, sms SMSProvider) *Dispatcher {
	return &Dispatcher{Email: email, SMS: sms}
}

// DeliverMagicLink sends a freshly issued link to the client's contact
// points. Email and SMS are attempted independently when both are present.
func (d *Dispatcher) DeliverMagicLink(link *models.MagicLink, url string, branding map[string]any) {
	if d == nil {
		return
	}

	if d.Email != nil && link.Email != "" {
		email := link.Email
		go func() {
			if err := d.Email.SendMagicLink(email, url, branding); err != nil {
				log.Printf("[Notify] magic link email to %s failed: %v", email, err)
			}
		}()
	}

	if d.SMS != nil && link.Phone != nil && *link.Phone != "" {
		phone := *link.Phone
		go func() {
			if err := d.SMS.SendMagicLink(phone, url); err != nil {
				log.Printf("[Notify] magic link sms to %s failed: %v", phone, err)
			}
		}()
	}
}

// DeliverOTP sends an escalation code via the requested method.
func (d *Dispatcher) DeliverOTP(method, target, code string, branding map[string]any) {
	if d == nil || target == "" {
		return
	}

	switch method {
	case models.DeliverySMS:
		if d.SMS == nil {
			log.Printf("[Notify] no sms provider configured, dropping otp for %s", target)
			return
		}
		go func() {
			if err := d.SMS.SendOTP(target, code); err != nil {
				log.Printf("[Notify] otp sms to %s failed: %v", target, err)
			}
		}()
	default:
		if d.Email == nil {
			log.Printf("[Notify] no email provider configured, dropping otp for %s", target)
			return
		}
		go func() {
			if err := d.Email.SendOTP(target, code, branding); err != nil {
				log.Printf("[Notify] otp email to %s failed: %v", target, err)
			}
		}()
	}
}
