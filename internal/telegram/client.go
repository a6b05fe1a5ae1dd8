package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/mnemocard/mnemocard/internal/menu"
)

const defaultBaseURL = "https://api.telegram.org"

// Client talks to the Bot API over HTTPS. All methods use the JSON
// POST form of the API and decode the standard ok/result envelope.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for the given bot token. baseURL is
// overridable for tests and local API servers; empty selects the
// public endpoint.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", baseURL, token)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type editMessageTextRequest struct {
	ChatID                int64                 `json:"chat_id"`
	MessageID             int64                 `json:"message_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

// SendMenu renders a menu as a new message and returns its message id.
func (c *Client) SendMenu(ctx context.Context, chatID int64, r menu.Render) (int64, error) {
	req := sendMessageRequest{
		ChatID:                chatID,
		Text:                  r.Title,
		ParseMode:             parseMode(r.Format),
		DisableWebPagePreview: r.DisablePreview,
		ReplyMarkup:           markup(r.Buttons),
	}
	raw, err := c.call(ctx, "sendMessage", req)
	if err != nil {
		return 0, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return 0, errors.Wrap(err, "decode sendMessage result")
	}
	return msg.MessageID, nil
}

// EditMenu rewrites an existing menu message in place.
func (c *Client) EditMenu(ctx context.Context, chatID, messageID int64, r menu.Render) error {
	req := editMessageTextRequest{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  r.Title,
		ParseMode:             parseMode(r.Format),
		DisableWebPagePreview: r.DisablePreview,
		ReplyMarkup:           markup(r.Buttons),
	}
	_, err := c.call(ctx, "editMessageText", req)
	return err
}

// AnswerCallback acknowledges a callback query, optionally with an
// alert popup.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error {
	_, err := c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       showAlert,
	})
	return err
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := c.call(ctx, "deleteMessage", deleteMessageRequest{ChatID: chatID, MessageID: messageID})
	return err
}

// SetWebhook points the bot at the given public URL.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	_, err := c.call(ctx, "setWebhook", setWebhookRequest{URL: url})
	return err
}

// DeleteWebhook detaches the bot from its webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.call(ctx, "deleteWebhook", struct{}{})
	return err
}

func (c *Client) call(ctx context.Context, method string, body interface{}) (json.RawMessage, error) {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/" + method)
	if err != nil {
		return nil, errors.Wrapf(err, "telegram %s", method)
	}
	if !out.OK {
		return nil, errors.Errorf("telegram %s: status %d: %s", method, resp.StatusCode(), out.Description)
	}
	return out.Result, nil
}

func markup(rows []menu.Row) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			line = append(line, InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		kb = append(kb, line)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: kb}
}

func parseMode(f menu.Format) string {
	switch f {
	case menu.FormatMarkdown:
		return "Markdown"
	case menu.FormatMarkdownV2:
		return "MarkdownV2"
	default:
		return ""
	}
}
