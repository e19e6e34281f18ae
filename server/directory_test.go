package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

type testServer struct {
	directory *Directory
	auth      *services.AuthService
	cursors   *repositories.CursorRepository
	messages  *repositories.MessageRepository
}

func (s *testServer) createUser(t *testing.T, name, password string) {
	t.Helper()
	require.NoError(t, s.auth.CreateUser(name, password))
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	messageRepo := repositories.NewMessageRepository(db, log)
	t.Cleanup(func() { _ = messageRepo.Close() })
	cursorRepo := repositories.NewCursorRepository(db)
	userRepo := repositories.NewUserRepository(db)
	channelRepo := repositories.NewChannelRepository(db)

	signer := auth.NewCookieSigner([]byte("test-signing-key"), time.Hour)
	authService := services.NewAuthService(userRepo, signer, log)
	store := services.NewStore(authService, messageRepo, cursorRepo, log)
	supervisor := runtime.NewSupervisor(log)

	directory, err := NewDirectory("127.0.0.1:0", authService, store, channelRepo, supervisor, 16, log)
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req.NoError(directory.Bootstrap(ctx, []string{"RED", "BLUE"}))
	go func() { _ = directory.Run(ctx) }()

	srv := &testServer{
		directory: directory,
		auth:      authService,
		cursors:   cursorRepo,
		messages:  messageRepo,
	}
	srv.createUser(t, "alice", "CorrectHorse7")
	srv.createUser(t, "bob", "CorrectHorse7")
	return srv
}

func login(t *testing.T, srv *testServer, name string) (domain.Token, []domain.ChannelInfo) {
	t.Helper()
	directory, err := client.DialDirectory(srv.directory.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = directory.Close() })

	token, channels, err := directory.Login(name, "CorrectHorse7")
	require.NoError(t, err)
	return token, channels
}

func channelAddr(t *testing.T, channels []domain.ChannelInfo, name string) string {
	t.Helper()
	for _, info := range channels {
		if info.Name == name {
			return info.Address
		}
	}
	t.Fatalf("channel %q not in listing", name)
	return ""
}

func recvOne(t *testing.T, session *client.Session) string {
	t.Helper()
	type result struct {
		line string
		err  error
	}
	results := make(chan result, 1)
	go func() {
		line, err := session.Receive()
		results <- result{line, err}
	}()
	select {
	case r := <-results:
		require.NoError(t, r.err)
		return r.line
	case <-time.After(2 * time.Second):
		t.Fatal("no line received in time")
		return ""
	}
}

func TestDirectory_Login_Lists_Channels(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	token, channels := login(t, srv, "alice")
	req.Equal("alice", token.UserName)
	req.NotEmpty(token.Cookie)

	req.Len(channels, 2)
	req.Equal("BLUE", channels[0].Name)
	req.Equal("RED", channels[1].Name)
	req.NotEmpty(channels[0].Address)
}

func TestDirectory_Login_Refused(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	directory, err := client.DialDirectory(srv.directory.Addr())
	req.NoError(err)
	defer directory.Close()

	_, _, err = directory.Login("alice", "wrong-password")
	req.Error(err)
	req.Contains(err.Error(), "login refused")
}

func TestDirectory_GetChannels_Requires_Token(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	directory, err := client.DialDirectory(srv.directory.Addr())
	req.NoError(err)
	defer directory.Close()

	forged := domain.Token{UserName: "alice", Cookie: "not-a-cookie"}
	_, err = directory.Channels(forged)
	req.Error(err)
}

func TestDirectory_CreateChannel_Is_Joinable(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	token, _ := login(t, srv, "alice")
	directory, err := client.DialDirectory(srv.directory.Addr())
	req.NoError(err)
	defer directory.Close()

	channels, err := directory.CreateChannel(token, "GREEN")
	req.NoError(err)
	req.Len(channels, 3)

	session, err := client.JoinChannel(channelAddr(t, channels, "GREEN"), token)
	req.NoError(err)
	defer session.Close()

	// Prove the session is live: a second user joining is announced.
	tokenB, _ := login(t, srv, "bob")
	other, err := client.JoinChannel(channelAddr(t, channels, "GREEN"), tokenB)
	req.NoError(err)
	defer other.Close()
	req.Equal("bob has joined!", recvOne(t, session))
}

func TestDirectory_CreateUser_Can_Login(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	token, _ := login(t, srv, "alice")
	directory, err := client.DialDirectory(srv.directory.Addr())
	req.NoError(err)
	defer directory.Close()

	req.NoError(directory.CreateUser(token, "clara", "AnotherPass7"))

	// Creation has no acknowledgement; poll until the login works.
	req.Eventually(func() bool {
		d, err := client.DialDirectory(srv.directory.Addr())
		if err != nil {
			return false
		}
		defer d.Close()
		_, _, err = d.Login("clara", "AnotherPass7")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDirectory_Replay_Across_Reconnects(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	tokenA, channels := login(t, srv, "alice")
	tokenB, _ := login(t, srv, "bob")
	red := channelAddr(t, channels, "RED")

	bob, err := client.JoinChannel(red, tokenB)
	req.NoError(err)
	defer bob.Close()

	// alice joins and talks; bob sees all of it.
	alice, err := client.JoinChannel(red, tokenA)
	req.NoError(err)
	req.Equal("alice has joined!", recvOne(t, bob))
	for _, content := range []string{"one", "two", "three"} {
		req.NoError(alice.Send(content))
		req.Equal("[alice] "+content, recvOne(t, bob))
	}

	// alice leaves; her cursor lands on the last id she produced.
	req.NoError(alice.Close())
	req.Eventually(func() bool {
		cursor, err := srv.cursors.Get("alice", "RED")
		return err == nil && cursor == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Rejoining replays nothing: the first line alice sees is the one
	// bob sends after her join announcement.
	alice, err = client.JoinChannel(red, tokenA)
	req.NoError(err)
	req.Equal("alice has joined!", recvOne(t, bob))
	req.NoError(bob.Send("marker1"))
	req.Equal("[bob] marker1", recvOne(t, alice))

	req.NoError(alice.Close())
	req.Eventually(func() bool {
		cursor, err := srv.cursors.Get("alice", "RED")
		return err == nil && cursor == 3
	}, 2*time.Second, 10*time.Millisecond)

	// One message lands while alice is away...
	req.NoError(bob.Send("four"))
	req.Eventually(func() bool {
		maxID, err := srv.messages.MaxID("RED")
		return err == nil && maxID == 4
	}, 2*time.Second, 10*time.Millisecond)

	// ...and is exactly what the next join replays.
	alice, err = client.JoinChannel(red, tokenA)
	req.NoError(err)
	defer alice.Close()
	req.Equal("[bob] four", recvOne(t, alice))
	req.Equal("alice has joined!", recvOne(t, bob))
	req.NoError(bob.Send("marker2"))
	req.Equal("[bob] marker2", recvOne(t, alice))
}
