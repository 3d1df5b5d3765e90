// Package backend implements the client for the bot proxy service. The proxy
// owns every Bot API concern; this package only speaks its JSON envelope.
package backend

import (
	"encoding/json"

	"github.com/go-telegram/bot/models"
)

// Backend endpoint paths, relative to the configured base URL.
const (
	PathValidate = "/api/telegram/validate"
	PathCommands = "/api/telegram/commands"
	PathSend     = "/api/telegram/send"
	PathCall     = "/api/telegram/call"
)

// BotInfo is the account behind a token, as returned by Validate.
type BotInfo = models.User

// Command is one entry of the bot's configured command list.
type Command = models.BotCommand

// SendMessageRequest is the body of a send call.
type SendMessageRequest struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// CallMethodRequest is the body of a generic call. Params must already be
// valid JSON; use ParseParams to build it from user input.
type CallMethodRequest struct {
	Token  string          `json:"token"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

// successEnvelope is the 2xx response shape.
type successEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// failureEnvelope is the non-2xx response shape the proxy documents. Other
// shapes are tolerated and reported as the whole body.
type failureEnvelope struct {
	Detail *struct {
		Description json.RawMessage `json:"description"`
	} `json:"detail"`
}
