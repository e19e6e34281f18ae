package client

import (
	"fmt"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
)

// Session is one joined channel connection. Receive and Send may be
// used from two goroutines (one reader, one writer), matching the
// duplex shape of the protocol.
type Session struct {
	lc    *protocol.LineConn
	token domain.Token
}

// JoinChannel dials a room endpoint and sends the mandatory join. A bad
// token shows up as a closed connection on the first Receive.
func JoinChannel(address string, token domain.Token) (*Session, error) {
	lc, err := protocol.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("reaching channel at %s: %w", address, err)
	}
	err = lc.WriteMessage(protocol.UserMessage{Join: &protocol.Join{Token: token}})
	if err != nil {
		_ = lc.Close()
		return nil, err
	}
	return &Session{lc: lc, token: token}, nil
}

// Send posts one chat line into the channel.
func (s *Session) Send(content string) error {
	return s.lc.WriteMessage(protocol.UserMessage{
		TextMessage: &protocol.UserText{Token: s.token, Content: content},
	})
}

// Receive blocks for the next text line: live chat, a join
// announcement, or replayed history.
func (s *Session) Receive() (string, error) {
	raw, err := s.lc.ReadLine()
	if err != nil {
		return "", err
	}
	msg, err := protocol.DecodeServerMessage(raw)
	if err != nil {
		return "", err
	}
	if msg.TextMessage == nil {
		return "", errors.ErrUnexpectedMessage
	}
	return msg.TextMessage.Content, nil
}

// Close ends the session; the server persists the read cursor when it
// sees the socket go away.
func (s *Session) Close() error { return s.lc.Close() }
