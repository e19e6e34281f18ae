// Package client drives the wire protocol from the user side: the
// directory conversation (login, listing, admin commands) and channel
// sessions. The terminal front end in cmd/client sits on top of it,
// and the end-to-end tests use it against a real server.
package client

import (
	"fmt"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
)

// Directory is one open connection to the directory server. Not safe
// for concurrent use; the terminal app serializes its requests.
type Directory struct {
	lc *protocol.LineConn
}

func DialDirectory(address string) (*Directory, error) {
	lc, err := protocol.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("reaching directory at %s: %w", address, err)
	}
	return &Directory{lc: lc}, nil
}

// Login exchanges credentials for a token and the channel listing.
func (d *Directory) Login(name, password string) (domain.Token, []domain.ChannelInfo, error) {
	err := d.lc.WriteMessage(protocol.UserMessage{
		Connect: &protocol.Connect{Name: name, Password: password},
	})
	if err != nil {
		return domain.Token{}, nil, err
	}

	reply, err := d.readServer()
	if err != nil {
		return domain.Token{}, nil, err
	}
	if reply.ConnectResponse == nil {
		return domain.Token{}, nil, errors.ErrUnexpectedMessage
	}
	if reply.ConnectResponse.Error != nil {
		return domain.Token{}, nil, fmt.Errorf("login refused: %s", *reply.ConnectResponse.Error)
	}
	if reply.ConnectResponse.Token == nil {
		return domain.Token{}, nil, errors.ErrMalformedMessage
	}
	token := *reply.ConnectResponse.Token

	listing, err := d.readServer()
	if err != nil {
		return domain.Token{}, nil, err
	}
	if listing.ChannelsInfo == nil {
		return domain.Token{}, nil, errors.ErrUnexpectedMessage
	}
	return token, listing.ChannelsInfo.Channels, nil
}

// Channels refreshes the channel listing.
func (d *Directory) Channels(token domain.Token) ([]domain.ChannelInfo, error) {
	err := d.lc.WriteMessage(protocol.UserMessage{
		GetChannels: &protocol.GetChannels{Token: token},
	})
	if err != nil {
		return nil, err
	}
	reply, err := d.readServer()
	if err != nil {
		return nil, err
	}
	if reply.ChannelsInfo == nil {
		return nil, errors.ErrUnexpectedMessage
	}
	return reply.ChannelsInfo.Channels, nil
}

// CreateChannel brings up a new room and returns the refreshed listing.
func (d *Directory) CreateChannel(token domain.Token, name string) ([]domain.ChannelInfo, error) {
	err := d.lc.WriteMessage(protocol.UserMessage{
		CreateChannel: &protocol.CreateChannel{Token: token, Name: name},
	})
	if err != nil {
		return nil, err
	}
	reply, err := d.readServer()
	if err != nil {
		return nil, err
	}
	if reply.ChannelsInfo == nil {
		return nil, errors.ErrUnexpectedMessage
	}
	return reply.ChannelsInfo.Channels, nil
}

// CreateUser registers an account. The server sends no acknowledgement;
// a refused request surfaces as a dropped connection on the next call.
func (d *Directory) CreateUser(token domain.Token, name, password string) error {
	return d.lc.WriteMessage(protocol.UserMessage{
		CreateUser: &protocol.CreateUser{Token: token, Name: name, Password: password},
	})
}

func (d *Directory) Close() error { return d.lc.Close() }

func (d *Directory) readServer() (protocol.ServerMessage, error) {
	raw, err := d.lc.ReadLine()
	if err != nil {
		return protocol.ServerMessage{}, err
	}
	return protocol.DecodeServerMessage(raw)
}
