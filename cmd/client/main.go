package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-relay/client"
	"chat-relay/domain"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run walks the interactive flow: login on the directory, pick a room,
// then pump the duplex session until EOF on stdin or the socket.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	stdin := bufio.NewScanner(os.Stdin)

	directory, err := client.DialDirectory(config.ServerAddress)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Debug("Closing directory connection...")
		_ = directory.Close()
	}()

	name := prompt(stdin, "user name")
	password := prompt(stdin, "password")
	token, channels, err := directory.Login(name, password)
	if err != nil {
		return exitRuntime, err
	}
	color.Green.Printf("Logged in as %s\n", name)
	printChannels(channels)

	chosen := prompt(stdin, "channel name")
	address, ok := findChannel(channels, chosen)
	if !ok {
		return exitRuntime, fmt.Errorf("no channel named %q", chosen)
	}

	session, err := client.JoinChannel(address, token)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = session.Close() }()
	color.Green.Printf("Joined %s (/quit to leave)\n", chosen)

	// Receive loop: announcements and chat lines, colorized apart.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			line, err := session.Receive()
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "[") {
				color.Cyan.Println(line)
			} else {
				color.Yellow.Println(line)
			}
		}
	}()

	// Send loop: plain lines go to the room, slash commands to the
	// directory.
	for stdin.Scan() {
		select {
		case <-done:
			return exitRuntime, fmt.Errorf("disconnected from %s", chosen)
		default:
		}
		input := strings.TrimSpace(stdin.Text())
		switch {
		case input == "":
			continue
		case input == "/quit":
			return exitOK, nil
		case strings.HasPrefix(input, "/"):
			if err := handleCommand(directory, token, input); err != nil {
				return exitRuntime, err
			}
		default:
			if err := session.Send(input); err != nil {
				return exitRuntime, err
			}
		}
	}
	return exitOK, nil
}

func handleCommand(directory *client.Directory, token domain.Token, input string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/channels":
		channels, err := directory.Channels(token)
		if err != nil {
			return err
		}
		printChannels(channels)
	case "/create-channel":
		if len(fields) != 2 {
			color.Red.Println("usage: /create-channel <name>")
			return nil
		}
		channels, err := directory.CreateChannel(token, fields[1])
		if err != nil {
			return err
		}
		printChannels(channels)
	case "/create-user":
		if len(fields) != 3 {
			color.Red.Println("usage: /create-user <name> <password>")
			return nil
		}
		if err := directory.CreateUser(token, fields[1], fields[2]); err != nil {
			return err
		}
		color.Green.Printf("Requested account for %s\n", fields[1])
	default:
		color.Red.Printf("Unknown command %s\n", fields[0])
	}
	return nil
}

func prompt(stdin *bufio.Scanner, label string) string {
	fmt.Printf("%s: ", label)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}

func printChannels(channels []domain.ChannelInfo) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Channel", "Address"})
	for _, info := range channels {
		table.Append([]string{info.Name, info.Address})
	}
	table.Render()
}

func findChannel(channels []domain.ChannelInfo, name string) (string, bool) {
	for _, info := range channels {
		if info.Name == name {
			return info.Address, true
		}
	}
	return "", false
}
