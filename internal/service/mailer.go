package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

// TypeCodeMail is the queue type name for confirmation code mails
const TypeCodeMail = "mail:send_code"

// CodeMailPayload is the job handed to the mail worker. It carries the
// full SMTP target so the worker process needs no mail configuration
// of its own
type CodeMailPayload struct {
	Server    string `json:"server"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NewCodeMailTask builds the mail job for a freshly issued login
// confirmation code. The code travels only inside the mail body, it is
// never part of any HTTP response
func NewCodeMailTask(recipient string, code int) (*asynq.Task, error) {
	p := CodeMailPayload{
		Server:    viper.GetString("smtp.host"),
		Port:      viper.GetInt("smtp.port"),
		Username:  viper.GetString("smtp.username"),
		Password:  viper.GetString("smtp.password"),
		Recipient: recipient,
		Subject:   "Two-factor authentication",
		Body: fmt.Sprintf("Your two-factor authentication code: %d\n\nThe code expires in %d minutes.",
			code, int(CodeTTL.Minutes())),
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeCodeMail, b,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// HandleCodeMailTask performs the SMTP delivery. The queue is
// at-least-once, a duplicate delivery just sends the same mail twice
func HandleCodeMailTask(ctx context.Context, t *asynq.Task) error {
	var p CodeMailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode mail payload, %v: %w", err, asynq.SkipRetry)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.Username)
	m.SetHeader("To", p.Recipient)
	m.SetHeader("Subject", p.Subject)
	m.SetBody("text/plain", p.Body)

	d := gomail.NewDialer(p.Server, p.Port, p.Username, p.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation mail, %w", err)
	}

	return nil
}
