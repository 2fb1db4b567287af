package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const pollTimeout = 30 // long-poll timeout in seconds

// Client talks to the Telegram Bot API. It sends outbound notifications to a
// single chat and long-polls for inbound operator commands.
type Client struct {
	client *resty.Client
	chatID string
	logger *zap.Logger
	offset int64
	retry  time.Duration // backoff after a failed poll round
}

// NewClient creates a Telegram client bound to one bot token and chat.
func NewClient(cfg *config.Telegram, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("https://api.telegram.org/bot%s", cfg.Token)).
		SetTimeout((pollTimeout + 5) * time.Second)

	return &Client{
		client: client,
		chatID: cfg.ChatID,
		logger: logger.Named("telegram"),
		retry:  5 * time.Second,
	}
}

type apiResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage sends a plain text message to the configured chat.
func (c *Client) SendMessage(text string) error {
	resp, err := c.client.R().
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"text":    text,
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API error: status %s: %s", resp.Status(), resp.String())
	}
	return nil
}

// Poll long-polls for inbound messages and forwards each text, in arrival
// order, to the commands channel. Each message is delivered at most once:
// the update offset is advanced before the message is handed off. Poll
// blocks until ctx is cancelled.
func (c *Client) Poll(ctx context.Context, commands chan<- string) {
	c.logger.Info("Starting Telegram command polling")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Telegram polling stopped")
			return
		default:
		}

		texts, err := c.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Telegram polling stopped")
				return
			}
			c.logger.Warn("Polling request failed", zap.Error(err))
			select {
			case <-time.After(c.retry):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, text := range texts {
			select {
			case commands <- text:
			case <-ctx.Done():
				return
			}
		}
	}
}

// getUpdates performs one long-poll round and returns the received texts.
func (c *Client) getUpdates(ctx context.Context) ([]string, error) {
	var result apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeout": strconv.Itoa(pollTimeout),
			"offset":  strconv.FormatInt(c.offset, 10),
		}).
		SetResult(&result).
		Get("/getUpdates")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("telegram API error: status %s", resp.Status())
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API reported not ok")
	}

	var texts []string
	for _, u := range result.Result {
		c.offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}
		text := strings.TrimSpace(u.Message.Text)
		if text == "" {
			continue
		}
		c.logger.Info("Received command", zap.String("text", text))
		texts = append(texts, text)
	}
	return texts, nil
}
