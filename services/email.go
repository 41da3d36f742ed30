package services

import (
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/LovationAdmin/trackit-api/config"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/jordan-wright/email"
)

// EmailService sends transactional mail over SMTP.
type EmailService struct {
	cfg         config.SMTPConfig
	frontendURL string
	send        func(e *email.Email) error
}

func NewEmailService(cfg config.SMTPConfig, frontendURL string) *EmailService {
	s := &EmailService{cfg: cfg, frontendURL: frontendURL}
	s.send = s.sendSMTP
	return s
}

func (s *EmailService) Enabled() bool {
	return s.cfg.Enabled()
}

func (s *EmailService) sendSMTP(e *email.Email) error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return e.Send(addr, auth)
}

// SendBudgetAlert tells a user that a budget crossed the critical threshold.
func (s *EmailService) SendBudgetAlert(to, name string, st *models.BudgetStatus) error {
	if !s.Enabled() {
		return ErrMailDisabled
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("TrackIt <%s>", s.cfg.From)
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Budget alert: %s at %.0f%%", st.Name, st.SpentPercentage)

	body := fmt.Sprintf("Hi %s,\n\n", name)
	body += fmt.Sprintf(
		"You have spent %s %s of your %s %s budget \"%s\" (%.0f%%).\n"+
			"Remaining: %s %s\n",
		st.Spent.StringFixed(2), st.Currency, st.Period, st.Amount.StringFixed(2), st.Name,
		st.SpentPercentage, st.Remaining.StringFixed(2), st.Currency,
	)
	if s.frontendURL != "" {
		body += fmt.Sprintf("\nReview your budgets: %s/budgets\n", s.frontendURL)
	}
	body += "\nTrackIt"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		utils.SafeError("Failed to send budget alert to %s: %v", utils.MaskEmail(to), err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	utils.SafeInfo("Budget alert email sent to %s", utils.MaskEmail(to))
	return nil
}
