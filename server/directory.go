// Package server hosts the directory endpoint: the fixed address where
// clients log in, discover channels, and run administrative commands.
// Channel traffic itself never passes through here; each room has its
// own listener.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

const acceptRetryDelay = 100 * time.Millisecond

// Directory is the login and channel-listing server. It also owns the
// live channel set: rooms recorded in the store are brought up at
// start, and CreateChannel brings up new ones while running.
type Directory struct {
	listener    net.Listener
	authService *services.AuthService
	store       contract.SessionStore
	channelRepo repositories.IChannelRepository
	supervisor  *runtime.Supervisor
	log         *slog.Logger
	sinkBuffer  int

	mu       sync.RWMutex
	channels map[string]*runtime.Channel
	runCtx   context.Context
}

func NewDirectory(
	address string,
	authService *services.AuthService,
	store contract.SessionStore,
	channelRepo repositories.IChannelRepository,
	supervisor *runtime.Supervisor,
	sinkBuffer int,
	log *slog.Logger,
) (*Directory, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("starting directory server on %s: %w", address, err)
	}
	return &Directory{
		listener:    listener,
		authService: authService,
		store:       store,
		channelRepo: channelRepo,
		supervisor:  supervisor,
		log:         log,
		sinkBuffer:  sinkBuffer,
		channels:    make(map[string]*runtime.Channel),
	}, nil
}

// Addr is the bound directory address, useful when the configured port
// was 0.
func (d *Directory) Addr() string { return d.listener.Addr().String() }

// Bootstrap recreates a listener for every persisted channel, seeding
// the given defaults on a first run. Must be called before Run.
func (d *Directory) Bootstrap(ctx context.Context, seed []string) error {
	d.runCtx = ctx

	names, err := d.channelRepo.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		for _, name := range seed {
			if err := d.channelRepo.Put(name); err != nil {
				return err
			}
		}
		names = seed
	}

	for _, name := range names {
		if _, err := d.createChannel(name); err != nil {
			return err
		}
	}
	d.log.Info("Channels up", "channels", names)
	return nil
}

// Run accepts directory connections until ctx is canceled or the
// listening socket fails fatally. Satisfies the Worker contract.
func (d *Directory) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = d.listener.Close()
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				d.log.Warn("Transient accept failure, retrying", "error", err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			return fmt.Errorf("directory listener: %w", err)
		}
		go d.handle(conn)
	}
}

// handle serves requests on one connection until EOF or the first
// malformed or unauthorized message.
func (d *Directory) handle(conn net.Conn) {
	lc := protocol.NewLineConn(conn)
	defer func() { _ = lc.Close() }()

	log := d.log.With("peer", lc.RemoteAddr())

	for {
		raw, err := lc.ReadLine()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeUserMessage(raw)
		if err != nil {
			log.Warn("Dropping connection on malformed request")
			return
		}
		if err := d.dispatch(lc, msg); err != nil {
			log.Warn("Request refused", "error", err)
			return
		}
	}
}

func (d *Directory) dispatch(lc *protocol.LineConn, msg protocol.UserMessage) error {
	switch {
	case msg.Connect != nil:
		return d.handleConnect(lc, *msg.Connect)
	case msg.GetChannels != nil:
		if !d.authService.Authorize(msg.GetChannels.Token) {
			return errors.ErrInvalidToken
		}
		return lc.WriteMessage(d.channelsInfo())
	case msg.CreateChannel != nil:
		return d.handleCreateChannel(lc, *msg.CreateChannel)
	case msg.CreateUser != nil:
		return d.handleCreateUser(*msg.CreateUser)
	default:
		// Join and TextMessage belong on channel endpoints.
		return errors.ErrUnexpectedMessage
	}
}

// handleConnect answers a login with a token and the channel list, or
// with an error and a closed connection.
func (d *Directory) handleConnect(lc *protocol.LineConn, req protocol.Connect) error {
	token, err := d.authService.Login(req.Name, req.Password)
	if err != nil {
		_ = lc.WriteMessage(protocol.ServerMessage{
			ConnectResponse: &protocol.ConnectResponse{Error: lo.ToPtr(err.Error())},
		})
		return err
	}
	err = lc.WriteMessage(protocol.ServerMessage{
		ConnectResponse: &protocol.ConnectResponse{Token: &token},
	})
	if err != nil {
		return err
	}
	return lc.WriteMessage(d.channelsInfo())
}

func (d *Directory) handleCreateChannel(lc *protocol.LineConn, req protocol.CreateChannel) error {
	if !d.authService.Authorize(req.Token) {
		return errors.ErrInvalidToken
	}
	if err := auth.ValidateChannel(auth.ChannelRequest{Name: req.Name}); err != nil {
		return err
	}

	d.mu.RLock()
	_, exists := d.channels[req.Name]
	d.mu.RUnlock()
	if exists {
		return errors.ErrNameTaken
	}

	if err := d.channelRepo.Put(req.Name); err != nil {
		return err
	}
	if _, err := d.createChannel(req.Name); err != nil {
		return err
	}
	d.log.Info("Channel created", "channel", req.Name, "by", req.Token.UserName)
	return lc.WriteMessage(d.channelsInfo())
}

func (d *Directory) handleCreateUser(req protocol.CreateUser) error {
	if !d.authService.Authorize(req.Token) {
		return errors.ErrInvalidToken
	}
	if err := d.authService.CreateUser(req.Name, req.Password); err != nil {
		return err
	}
	d.log.Info("User created", "user", req.Name, "by", req.Token.UserName)
	return nil
}

// createChannel binds a room listener and puts it under supervision.
func (d *Directory) createChannel(name string) (*runtime.Channel, error) {
	channel, err := runtime.NewChannel(name, d.store, d.sinkBuffer, d.log)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.channels[name] = channel
	d.mu.Unlock()

	d.supervisor.Start(d.runCtx, channel)
	return channel, nil
}

// channelsInfo snapshots the live channel set as a directory message,
// sorted by name so the listing is stable.
func (d *Directory) channelsInfo() protocol.ServerMessage {
	d.mu.RLock()
	infos := lo.MapToSlice(d.channels, func(_ string, c *runtime.Channel) domain.ChannelInfo {
		return c.Info()
	})
	d.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return protocol.ServerMessage{ChannelsInfo: &protocol.ChannelsInfo{Channels: infos}}
}
