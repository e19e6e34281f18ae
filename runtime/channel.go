package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/protocol"
)

const acceptRetryDelay = 100 * time.Millisecond

// Channel owns one room: its listening endpoint, its peer registry, and
// the lifecycle of every peer session inside it. It satisfies the
// Worker contract so rooms run under the supervisor.
type Channel struct {
	name       string
	listener   net.Listener
	registry   *Registry
	store      contract.SessionStore
	log        *slog.Logger
	sinkBuffer int
}

// NewChannel binds an ephemeral local endpoint for the room. A bind
// failure is fatal for this room and propagated to the caller.
func NewChannel(name string, store contract.SessionStore, sinkBuffer int, log *slog.Logger) (*Channel, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting channel %s: %w", name, err)
	}
	log = log.With("channel", name)
	return &Channel{
		name:       name,
		listener:   listener,
		registry:   NewRegistry(log),
		store:      store,
		log:        log,
		sinkBuffer: sinkBuffer,
	}, nil
}

// Info returns the descriptor published to clients.
func (c *Channel) Info() domain.ChannelInfo {
	return domain.ChannelInfo{Name: c.name, Address: c.listener.Addr().String()}
}

// Run accepts connections until the listener dies or ctx is canceled.
// Timeouts on accept are logged and retried; anything else on the
// listening socket ends the room and is reported upward.
func (c *Channel) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.listener.Close()
	}()

	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				c.log.Warn("Transient accept failure, retrying", "error", err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			return fmt.Errorf("channel %s listener: %w", c.name, err)
		}

		// Post-accept work is independent per connection; the next
		// accept is never held up by a slow handshake.
		go c.handle(ctx, conn)
	}
}

// handle walks one connection through join, replay, registration,
// announcement, and the session loop. The deferred cleanup runs on
// every exit path so the registry never keeps a dead peer.
func (c *Channel) handle(ctx context.Context, conn net.Conn) {
	lc := protocol.NewLineConn(conn)
	defer func() { _ = lc.Close() }()

	log := c.log.With("peer", lc.RemoteAddr(), "session", uuid.NewString())

	user, err := c.awaitJoin(lc)
	if err != nil {
		log.Warn("Join rejected", "error", err)
		return
	}
	log = log.With("user", user)

	if err := c.replayUnseen(lc, user); err != nil {
		log.Error("History replay failed", "error", err)
		return
	}

	key := lc.RemoteAddr()
	sink := make(Sink, c.sinkBuffer)
	c.registry.Insert(key, sink)
	defer c.registry.Remove(key)

	if line, err := protocol.EncodeText(fmt.Sprintf("%s has joined!", user)); err == nil {
		c.registry.BroadcastExcept(key, line)
	}

	log.Info("Peer joined", "peers", c.registry.Size())

	peer := NewPeer(key, user, c.name, lc, sink, c.registry, c.store, log)
	if err := peer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Info("Peer session ended", "reason", err)
	}
}

// awaitJoin reads the mandatory first message. Anything but a
// well-formed, authorized Join closes the connection unregistered.
func (c *Channel) awaitJoin(lc *protocol.LineConn) (string, error) {
	raw, err := lc.ReadLine()
	if err != nil {
		return "", err
	}
	msg, err := protocol.DecodeUserMessage(raw)
	if err != nil {
		return "", err
	}
	if msg.Join == nil {
		return "", fmt.Errorf("expected Join, got something else")
	}
	if !c.store.Authorize(msg.Join.Token) {
		return "", fmt.Errorf("token for %q refused", msg.Join.Token.UserName)
	}
	return msg.Join.Token.UserName, nil
}

// replayUnseen writes everything the user missed since their cursor,
// oldest first, each as its own text line.
func (c *Channel) replayUnseen(lc *protocol.LineConn, user string) error {
	messages, err := c.store.UnseenMessages(c.name, user)
	if err != nil {
		return err
	}
	for _, m := range messages {
		err := lc.WriteMessage(protocol.ServerMessage{
			TextMessage: &protocol.ServerText{Content: fmt.Sprintf("[%s] %s", m.Author, m.Content)},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
