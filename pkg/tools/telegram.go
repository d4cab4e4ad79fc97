package tools

import (
	"context"
	"strconv"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
)

// telegramSession wires MTProto credentials once and runs a single short-
// lived connection per outbound call.
type telegramSession struct {
	appID   int
	appHash string
}

func newTelegramSession(appID int, appHash string) *telegramSession {
	return &telegramSession{appID: appID, appHash: appHash}
}

func (s *telegramSession) configured() bool {
	return s.appID != 0 && s.appHash != ""
}

func (s *telegramSession) withClient(ctx context.Context, fn func(ctx context.Context, api *tg.Client) error) error {
	client := telegram.NewClient(s.appID, s.appHash, telegram.Options{})
	return client.Run(ctx, func(ctx context.Context) error {
		return fn(ctx, client.API())
	})
}

// SendMessageTool posts a text message to a Telegram chat or channel.
type SendMessageTool struct{ session *telegramSession }

func NewSendMessageTool(appID int, appHash string) *SendMessageTool {
	return &SendMessageTool{session: newTelegramSession(appID, appHash)}
}

func (t *SendMessageTool) Name() string        { return "send_message" }
func (t *SendMessageTool) Description() string { return "sends a text message to a Telegram chat" }

func (t *SendMessageTool) Execute(ctx context.Context, input Input) Result {
	if !t.session.configured() {
		return fail("send_message: no Telegram credentials configured")
	}
	chatIDStr, ok2 := stringArg(input, "chat_id")
	text, ok3 := stringArg(input, "text")
	if !ok2 || !ok3 || chatIDStr == "" || text == "" {
		return fail("missing required string arguments \"chat_id\" and \"text\"")
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return fail("send_message: invalid chat_id %q", chatIDStr)
	}

	err = t.session.withClient(ctx, func(ctx context.Context, api *tg.Client) error {
		_, err := api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:     &tg.InputPeerChannel{ChannelID: chatID},
			Message:  text,
			RandomID: randomID(),
		})
		return err
	})
	if err != nil {
		return fail("send_message: %v", err)
	}
	return ok(map[string]interface{}{"sent": true})
}

// BanUserTool removes a user's posting rights in a Telegram channel.
type BanUserTool struct{ session *telegramSession }

func NewBanUserTool(appID int, appHash string) *BanUserTool {
	return &BanUserTool{session: newTelegramSession(appID, appHash)}
}

func (t *BanUserTool) Name() string        { return "ban_user" }
func (t *BanUserTool) Description() string { return "bans a user from a Telegram channel" }

func (t *BanUserTool) Execute(ctx context.Context, input Input) Result {
	if !t.session.configured() {
		return fail("ban_user: no Telegram credentials configured")
	}
	chatIDStr, ok2 := stringArg(input, "chat_id")
	userIDStr, ok3 := stringArg(input, "user_id")
	if !ok2 || !ok3 || chatIDStr == "" || userIDStr == "" {
		return fail("missing required string arguments \"chat_id\" and \"user_id\"")
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return fail("ban_user: invalid chat_id %q", chatIDStr)
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return fail("ban_user: invalid user_id %q", userIDStr)
	}

	err = t.session.withClient(ctx, func(ctx context.Context, api *tg.Client) error {
		_, err := api.ChannelsEditBanned(ctx, &tg.ChannelsEditBannedRequest{
			Channel:     &tg.InputChannel{ChannelID: chatID},
			Participant: &tg.InputPeerUser{UserID: userID},
			BannedRights: tg.ChatBannedRights{
				ViewMessages: true,
				SendMessages: true,
			},
		})
		return err
	})
	if err != nil {
		return fail("ban_user: %v", err)
	}
	return ok(map[string]interface{}{"banned": true})
}

var randomIDCounter int64

func randomID() int64 {
	randomIDCounter++
	return randomIDCounter + int64(1)<<40
}
