package services

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"transactionsProject/config"
)

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer: dialer,
		from:   cfg.SMTP.From,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// SendWelcomeEmail отправляет приветственное письмо после регистрации
func (s *EmailService) SendWelcomeEmail(to, firstName string) error {
	subject := "Добро пожаловать!"
	body := fmt.Sprintf(`
		<h2>Здравствуйте, %s!</h2>
		<p>Ваша учетная запись успешно создана.</p>
		<p>Дата регистрации: %s</p>
	`, firstName, time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(to, subject, body)
}

// SendTransactionNotification отправляет уведомление о новой транзакции
func (s *EmailService) SendTransactionNotification(to string, amount float64, date string) error {
	subject := "Уведомление о транзакции"
	kind := "Доход"
	if amount < 0 {
		kind = "Расход"
	}
	body := fmt.Sprintf(`
		<h2>Уведомление о транзакции</h2>
		<p>Тип операции: %s</p>
		<p>Сумма: %.2f</p>
		<p>Дата: %s</p>
	`, kind, amount, date)

	return s.SendEmail(to, subject, body)
}
