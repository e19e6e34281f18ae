package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/protocol"
)

// Peer runs the duplex loop of one authorized connection: lines landing
// in its private inbox go out on the socket, lines arriving on the
// socket become broadcasts. The channel handler owns registration and
// cleanup; Peer only reports how the session ended.
type Peer struct {
	key     string
	user    string
	channel string
	conn    *protocol.LineConn
	inbox   Sink
	reg     *Registry
	store   contract.SessionStore
	log     *slog.Logger
}

func NewPeer(
	key, user, channel string,
	conn *protocol.LineConn,
	inbox Sink,
	reg *Registry,
	store contract.SessionStore,
	log *slog.Logger,
) *Peer {
	return &Peer{
		key:     key,
		user:    user,
		channel: channel,
		conn:    conn,
		inbox:   inbox,
		reg:     reg,
		store:   store,
		log:     log,
	}
}

// Run loops until the socket closes, a write fails, or the token stops
// authorizing. The race between inbox and socket has no fixed priority;
// whichever is ready first wins the iteration.
func (p *Peer) Run(ctx context.Context) error {
	lines := make(chan []byte)
	done := make(chan struct{})
	defer close(done)
	go p.readLines(lines, done)

	for {
		select {
		case out := <-p.inbox:
			if err := p.conn.WriteLine(out); err != nil {
				return fmt.Errorf("writing to %s: %w", p.key, err)
			}

		case raw, ok := <-lines:
			if !ok {
				// Socket gone or line unreadable: remember how far this
				// user got so the next join replays only what follows.
				p.saveCursor(ctx)
				return errors.ErrMalformedMessage
			}
			if err := p.handleLine(ctx, raw); err != nil {
				return err
			}

		case <-ctx.Done():
			p.saveCursor(ctx)
			return ctx.Err()
		}
	}
}

func (p *Peer) handleLine(ctx context.Context, raw []byte) error {
	msg, err := protocol.DecodeUserMessage(raw)
	if err != nil || msg.TextMessage == nil {
		p.saveCursor(ctx)
		return errors.ErrUnexpectedMessage
	}
	text := msg.TextMessage

	// Tokens expire between messages, so every line re-authorizes.
	if !p.store.Authorize(text.Token) {
		return errors.ErrInvalidToken
	}

	if err := p.store.SaveMessage(ctx, p.channel, p.user, text.Content); err != nil {
		// Store failures drop this message (neither stored nor
		// delivered) without ending the session.
		p.log.Error("Message dropped, store unavailable",
			"channel", p.channel, "user", p.user, "error", err)
		return nil
	}

	line, err := protocol.EncodeText(fmt.Sprintf("[%s] %s", p.user, text.Content))
	if err != nil {
		return err
	}
	p.reg.BroadcastExcept(p.key, line)
	return nil
}

// readLines pumps socket lines into a channel the event loop can select
// on. The scanner reuses its buffer, so every line is copied out. The
// done channel keeps the pump from outliving a loop that already exited.
func (p *Peer) readLines(lines chan<- []byte, done <-chan struct{}) {
	defer close(lines)
	for {
		raw, err := p.conn.ReadLine()
		if err != nil {
			return
		}
		line := make([]byte, len(raw))
		copy(line, raw)
		select {
		case lines <- line:
		case <-done:
			return
		}
	}
}

func (p *Peer) saveCursor(ctx context.Context) {
	if err := p.store.SaveHistoryCursor(ctx, p.channel, p.user); err != nil {
		p.log.Warn("Read cursor not saved",
			"channel", p.channel, "user", p.user, "error", err)
	}
}
