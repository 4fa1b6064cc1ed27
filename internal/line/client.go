package line

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.line.me"

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Client sends messages through the LINE Messaging API.
type Client struct {
	http *resty.Client
}

func NewClient(channelAccessToken string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetAuthToken(channelAccessToken).
			SetHeader("Content-Type", "application/json"),
	}
}

// Reply delivers one text message against the event's reply token. Reply
// tokens are single-use and expire quickly, so there is no retry.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(replyRequest{
			ReplyToken: replyToken,
			Messages:   []textMessage{{Type: "text", Text: text}},
		}).
		Post("/v2/bot/message/reply")
	if err != nil {
		return fmt.Errorf("error calling reply api: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("reply api returned status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// Push delivers one text message directly to a user, outside any reply
// token. The retry key makes a re-sent request idempotent on LINE's side.
func (c *Client) Push(ctx context.Context, userID, text string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Line-Retry-Key", uuid.NewString()).
		SetBody(pushRequest{
			To:       userID,
			Messages: []textMessage{{Type: "text", Text: text}},
		}).
		Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("error calling push api: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("push api returned status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}
