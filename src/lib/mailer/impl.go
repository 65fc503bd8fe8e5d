package mailer

import (
	"encoding/json"
	"fleetbook/src/lib"
	"fleetbook/src/types"
	"fmt"
	"os"
)

// NewMailerMessage enqueues one outbound mail for the mail worker. Local
// environments put it on the Kafka queue, everything else goes through SQS.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	apiEnv := os.Getenv("API_ENV")
	emailBody := &types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"bcc":       input.Bcc,
		"reply-to":  input.ReplyTo,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	if apiEnv == string(types.Local) {
		if err := lib.KafkaProduceMessage("emails", emailQueue, emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(emailQueue, string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

// EmailQueueWorker drains the mail queue and dispatches over SMTP.
func EmailQueueWorker(body string) {
	var payload types.JSONB
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return
	}
	input := lib.SendMailInput{
		From:     stringAt(payload, "from"),
		FromName: stringAt(payload, "from-name"),
		To:       stringsAt(payload, "to"),
		Cc:       stringsAt(payload, "cc"),
		Bcc:      stringsAt(payload, "bcc"),
		ReplyTo:  stringAt(payload, "reply-to"),
		Subject:  stringAt(payload, "subject"),
		Body:     stringAt(payload, "body"),
	}
	if html, ok := payload["html"].(bool); ok {
		input.Html = html
	}
	_ = lib.SendMail(&input)
}

func stringAt(p types.JSONB, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func stringsAt(p types.JSONB, key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
