package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"skillswap/internal/api"
	"skillswap/internal/auth"
	"skillswap/internal/call"
	"skillswap/internal/chat"
	"skillswap/internal/user"
)

type config struct {
	BaseURL string `env:"SKILLSWAP_API_URL" envDefault:"http://localhost:8000/api"`
}

func main() {
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	register := flag.Bool("register", false, "create the account before logging in")
	peer := flag.String("peer", "", "username of the person to chat with")
	flag.Parse()

	if *username == "" || *password == "" || *peer == "" {
		log.Fatal("❌ -user, -pass and -peer are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	creds := auth.NewCredentials(cfg.BaseURL)
	client := api.NewClient(cfg.BaseURL, creds)
	authSvc := auth.NewService(client, creds)
	userSvc := user.NewService(client)
	chatSvc := chat.NewService(client)
	callSvc := call.NewService(client)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *register {
		err := authSvc.Register(ctx, auth.RegisterRequest{
			Username: *username,
			Email:    *username + "@skillswap.local",
			Password: *password,
		})
		if err != nil {
			// Probably already registered; login decides.
			log.Printf("register: %v", err)
		}
	}

	me, err := authSvc.Login(ctx, *username, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s (id %d)", me.Username, me.ID)

	other, err := findUser(ctx, userSvc, *peer)
	if err != nil {
		log.Fatalf("❌ Could not find %q: %v", *peer, err)
	}

	conv, err := chatSvc.Create(ctx, me.ID, other.ID)
	if err != nil {
		log.Fatalf("❌ Could not open chat with %s: %v", other.Username, err)
	}

	session := chat.NewSession(chatSvc, creds, conv.ID, chat.SessionHandlers{
		OnMessage: func(m chat.Message) {
			printMessage(m, me.ID)
		},
		OnError: func(text string) {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", text)
		},
	}, chat.WithReconnect(chat.ReconnectPolicy{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}))
	defer session.Close()

	if err := session.Open(ctx); err != nil {
		var notFound *api.NotFoundError
		if errors.As(err, &notFound) {
			log.Fatalf("❌ Chat disappeared: %v", err)
		}
		log.Fatalf("❌ Could not connect: %v", err)
	}

	for _, m := range session.Messages() {
		printMessage(m, me.ID)
	}
	log.Printf("💬 Connected to chat %d with %s. Type a message, /call to start a call, /quit to leave.", conv.ID, other.Username)

	go func() {
		<-ctx.Done()
		session.Close()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/call":
			c, err := callSvc.Initiate(ctx, conv.ID, "teaching")
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  call failed: %v\n", err)
				continue
			}
			log.Printf("📞 Call %d initiated, room %s", c.ID, c.JitsiRoomID)
		default:
			if err := sendWithRetryHint(session, line); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  %v (your text is kept, try again)\n", err)
			}
		}
	}
}

// findUser resolves a username through search; search matches fragments, so
// filter for the exact name.
func findUser(ctx context.Context, users *user.Service, username string) (*user.User, error) {
	results, err := users.Search(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, u := range results {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("no user named %q", username)
}

// sendWithRetryHint never consumes the text on failure; the caller decides
// whether to resend.
func sendWithRetryHint(session *chat.Session, text string) error {
	err := session.Send(text)
	var notReady *chat.ChannelNotReadyError
	if errors.As(err, &notReady) {
		return fmt.Errorf("chat connection not ready (%s)", notReady.State)
	}
	return err
}

func printMessage(m chat.Message, myID int) {
	who := m.SenderUsername
	if m.SenderID == myID {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Text)
}
