package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// MailerClient sends transactional mail through the email-delivery
// service.
type MailerClient struct {
	baseURL string
	apiKey  string
	inbox   string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewMailerClient builds a client; inbox is the farm's own address for
// contact-form messages and sale notices.
func NewMailerClient(baseURL, apiKey, inbox string, logger *zap.SugaredLogger) *MailerClient {
	return &MailerClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		inbox:   inbox,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
	MimeType string `json:"mime_type"`
}

type sendMessageRequest struct {
	To          string       `json:"to"`
	ToName      string       `json:"to_name,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

func (c *MailerClient) send(ctx context.Context, msg sendMessageRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mailer: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mailer: send: status %d", resp.StatusCode)
	}
	return nil
}

// SendVoucher delivers the voucher PDF to the buyer.
func (c *MailerClient) SendVoucher(ctx context.Context, toEmail, toName, code string, pdf []byte) error {
	return c.send(ctx, sendMessageRequest{
		To:      toEmail,
		ToName:  toName,
		Subject: fmt.Sprintf("Your gift voucher %s", code),
		Text: fmt.Sprintf(
			"Thank you for your purchase! Your voucher code is %s. "+
				"The printable voucher is attached. It is valid for 12 months.", code),
		Attachments: []attachment{{
			Filename: fmt.Sprintf("voucher-%s.pdf", code),
			Content:  base64.StdEncoding.EncodeToString(pdf),
			MimeType: "application/pdf",
		}},
	})
}

// SendSaleNotice tells the farm inbox that a voucher was paid for.
func (c *MailerClient) SendSaleNotice(ctx context.Context, code string, amount int64, curr string) error {
	return c.send(ctx, sendMessageRequest{
		To:      c.inbox,
		Subject: fmt.Sprintf("Voucher sold: %s", code),
		Text:    fmt.Sprintf("Voucher %s paid: %d %s (minor units).", code, amount, curr),
	})
}

// SendContact forwards a contact-form message to the farm inbox with
// the visitor's address as reply-to.
func (c *MailerClient) SendContact(ctx context.Context, name, email, message string) error {
	return c.send(ctx, sendMessageRequest{
		To:      c.inbox,
		ReplyTo: email,
		Subject: fmt.Sprintf("Website message from %s", name),
		Text:    message,
	})
}
