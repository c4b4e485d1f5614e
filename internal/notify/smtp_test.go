package notify

import (
	"strings"
	"testing"
)

func validSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:     "smtp.example.com",
		Username: "alerts@example.com",
		Password: "secret",
		To:       []string{"ops@example.com"},
	}
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SMTPConfig)
	}{
		{"missing host", func(c *SMTPConfig) { c.Host = "" }},
		{"missing username", func(c *SMTPConfig) { c.Username = "" }},
		{"missing password", func(c *SMTPConfig) { c.Password = "" }},
		{"empty recipients", func(c *SMTPConfig) { c.To = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSMTPConfig()
			tt.mutate(&cfg)
			if _, err := NewSMTPNotifier(cfg); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestNewSMTPNotifier_Defaults(t *testing.T) {
	n, err := NewSMTPNotifier(validSMTPConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.cfg.Port != 465 {
		t.Errorf("expected default port 465, got %d", n.cfg.Port)
	}
	if n.cfg.From != "alerts@example.com" {
		t.Errorf("expected From to default to the username, got %s", n.cfg.From)
	}
}

func TestSMTPNotifier_BuildMessage(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.To = []string{"ops@example.com", "oncall@example.com"}
	n, err := NewSMTPNotifier(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := string(n.buildMessage(Alert{
		DistrictID: 7,
		Message:    "Alert: District 'Maadi' in Cairo has 20 negative reviews.",
	}))

	checks := []string{
		"From: alerts@example.com\r\n",
		"To: ops@example.com, oncall@example.com\r\n",
		"Subject: Negative Review Alert - District 7\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"Alert: District 'Maadi' in Cairo has 20 negative reviews.",
	}
	for _, want := range checks {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	if !strings.Contains(msg, "\r\n\r\n") {
		t.Error("headers must be separated from the body by a blank line")
	}
}
