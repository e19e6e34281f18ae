// Package protocol defines the newline-delimited JSON wire format spoken
// between clients, the directory server, and channel listeners.
//
// Each line carries exactly one message object with a single external
// tag naming the variant, e.g. {"Join":{"token":{...}}}. The two unions
// are closed: a line with zero or several tags is a protocol error.
package protocol

import (
	"encoding/json"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Connect is the login request sent to the directory server.
type Connect struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Join is the first message a client must send on a channel connection.
type Join struct {
	Token domain.Token `json:"token"`
}

// UserText is a chat line sent into a channel. The token is re-checked
// on every message, not only at join time.
type UserText struct {
	Token   domain.Token `json:"token"`
	Content string       `json:"content"`
}

// CreateChannel asks the directory server to bring up a new channel.
type CreateChannel struct {
	Token domain.Token `json:"token"`
	Name  string       `json:"name"`
}

// CreateUser asks the directory server to register a new account.
type CreateUser struct {
	Token    domain.Token `json:"token"`
	Name     string       `json:"name"`
	Password string       `json:"password"`
}

// GetChannels asks the directory server for the current channel list.
type GetChannels struct {
	Token domain.Token `json:"token"`
}

// UserMessage is the client-to-server union. Exactly one field is set.
type UserMessage struct {
	Connect       *Connect       `json:"Connect,omitempty"`
	Join          *Join          `json:"Join,omitempty"`
	TextMessage   *UserText      `json:"TextMessage,omitempty"`
	CreateChannel *CreateChannel `json:"CreateChannel,omitempty"`
	CreateUser    *CreateUser    `json:"CreateUser,omitempty"`
	GetChannels   *GetChannels   `json:"GetChannels,omitempty"`
}

// ConnectResponse answers a Connect: either a token or an error text.
type ConnectResponse struct {
	Token *domain.Token `json:"token"`
	Error *string       `json:"error"`
}

// ChannelsInfo carries the channel directory.
type ChannelsInfo struct {
	Channels []domain.ChannelInfo `json:"channels"`
}

// ServerText is a chat line pushed to a client. It is used uniformly
// for live messages, join announcements, and replayed history.
type ServerText struct {
	Content string `json:"content"`
}

// ServerMessage is the server-to-client union. Exactly one field is set.
type ServerMessage struct {
	ConnectResponse *ConnectResponse `json:"ConnectResponse,omitempty"`
	ChannelsInfo    *ChannelsInfo    `json:"ChannelsInfo,omitempty"`
	TextMessage     *ServerText      `json:"TextMessage,omitempty"`
}

// DecodeUserMessage parses one wire line into the user union and
// rejects lines that do not carry exactly one variant.
func DecodeUserMessage(line []byte) (UserMessage, error) {
	var msg UserMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return UserMessage{}, errors.ErrMalformedMessage
	}
	set := 0
	for _, v := range []bool{
		msg.Connect != nil,
		msg.Join != nil,
		msg.TextMessage != nil,
		msg.CreateChannel != nil,
		msg.CreateUser != nil,
		msg.GetChannels != nil,
	} {
		if v {
			set++
		}
	}
	if set != 1 {
		return UserMessage{}, errors.ErrMalformedMessage
	}
	return msg, nil
}

// DecodeServerMessage parses one wire line into the server union.
func DecodeServerMessage(line []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return ServerMessage{}, errors.ErrMalformedMessage
	}
	set := 0
	for _, v := range []bool{
		msg.ConnectResponse != nil,
		msg.ChannelsInfo != nil,
		msg.TextMessage != nil,
	} {
		if v {
			set++
		}
	}
	if set != 1 {
		return ServerMessage{}, errors.ErrMalformedMessage
	}
	return msg, nil
}

// Encode renders a message as a single wire line, without the trailing
// newline. Both unions marshal with plain encoding/json.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// EncodeText is the common case on the broadcast path: a ServerMessage
// text line ready to hand to peer sinks.
func EncodeText(content string) ([]byte, error) {
	return Encode(ServerMessage{TextMessage: &ServerText{Content: content}})
}
