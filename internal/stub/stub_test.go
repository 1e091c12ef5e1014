package stub

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"skillswap/internal/api"
	"skillswap/internal/auth"
	"skillswap/internal/call"
	"skillswap/internal/chat"
	"skillswap/internal/skill"
	"skillswap/internal/user"
)

// client bundles one logged-in SDK user against the stub.
type client struct {
	creds *auth.Credentials
	api   *api.Client
	me    *auth.LoginResponse
}

func signup(t *testing.T, baseURL, username string) *client {
	t.Helper()
	creds := auth.NewCredentials(baseURL)
	apiClient := api.NewClient(baseURL, creds)
	authSvc := auth.NewService(apiClient, creds)

	err := authSvc.Register(context.Background(), auth.RegisterRequest{
		Username: username,
		Email:    username + "@test.local",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	me, err := authSvc.Login(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return &client{creds: creds, api: apiClient, me: me}
}

func startStub(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(New("test-secret").Router())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestAuthAndProfileFlow(t *testing.T) {
	baseURL := startStub(t)
	alice := signup(t, baseURL, "alice")

	users := user.NewService(alice.api)
	me, err := users.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Username != "alice" {
		t.Fatalf("expected alice, got %q", me.Username)
	}

	newEmail := "alice@skillswap.local"
	updated, err := users.UpdateMe(context.Background(), user.Update{Email: &newEmail})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if updated.Email != newEmail {
		t.Fatalf("email not updated: %q", updated.Email)
	}

	// Refresh rotates the pair; the old refresh token is dead afterwards.
	oldAccess := alice.creds.AccessToken()
	if err := alice.creds.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if alice.creds.AccessToken() == oldAccess {
		t.Fatal("access token not rotated")
	}
	if _, err := users.Me(context.Background()); err != nil {
		t.Fatalf("me after refresh: %v", err)
	}
}

func TestSkillLifecycle(t *testing.T) {
	baseURL := startStub(t)
	alice := signup(t, baseURL, "alice")
	skills := skill.NewService(alice.api)
	ctx := context.Background()

	created, err := skills.Create(ctx, skill.Create{Type: skill.TypeTeaching, Name: "Go", Description: "Concurrency and tooling"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.UserID != alice.me.ID {
		t.Fatalf("owner mismatch: %d", created.UserID)
	}

	name := "Golang"
	updated, err := skills.Update(ctx, created.ID, skill.Update{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Golang" {
		t.Fatalf("name not updated: %q", updated.Name)
	}

	found, _, err := skills.Search(ctx, "golang", skill.ListOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("search missed the skill: %+v", found)
	}

	if err := skills.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var notFound *api.NotFoundError
	if _, err := skills.Get(ctx, created.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestChatRESTContract(t *testing.T) {
	baseURL := startStub(t)
	alice := signup(t, baseURL, "alice")
	bob := signup(t, baseURL, "bob")
	ctx := context.Background()

	aliceChats := chat.NewService(alice.api)
	c, err := aliceChats.Create(ctx, alice.me.ID, bob.me.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	// Idempotent per unordered pair: bob creating the reverse pair gets the
	// same chat.
	bobChats := chat.NewService(bob.api)
	c2, err := bobChats.Create(ctx, bob.me.ID, alice.me.ID)
	if err != nil {
		t.Fatalf("create chat reverse: %v", err)
	}
	if c2.ID != c.ID {
		t.Fatalf("pair not idempotent: %d vs %d", c.ID, c2.ID)
	}

	for _, text := range []string{"one", "two", "three"} {
		if _, err := aliceChats.PostMessage(ctx, c.ID, text); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
	}

	// History comes back ascending regardless of the newest-first wire order.
	msgs, total, err := bobChats.History(ctx, c.ID, 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected page of 2, got %d", len(msgs))
	}
	if msgs[0].Text != "two" || msgs[1].Text != "three" {
		t.Fatalf("page not ascending: %+v", msgs)
	}

	// Previews carry the most recent message.
	items, _, err := bobChats.ListWithMessages(ctx, 50, 0)
	if err != nil {
		t.Fatalf("list with messages: %v", err)
	}
	if len(items) != 1 || items[0].LastMessage == nil || items[0].LastMessage.Text != "three" {
		t.Fatalf("unexpected previews: %+v", items)
	}
	if items[0].OtherUser == nil || items[0].OtherUser.Username != "alice" {
		t.Fatalf("expected alice as counterpart, got %+v", items[0].OtherUser)
	}

	// Outsiders get 403, missing chats 404.
	carol := signup(t, baseURL, "carol")
	carolChats := chat.NewService(carol.api)
	var denied *api.AccessDeniedError
	if _, _, err := carolChats.History(ctx, c.ID, 10, 0); !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	var notFound *api.NotFoundError
	if _, err := carolChats.Get(ctx, 9999); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestLiveChannelEndToEnd(t *testing.T) {
	baseURL := startStub(t)
	alice := signup(t, baseURL, "alice")
	bob := signup(t, baseURL, "bob")
	ctx := context.Background()

	aliceChats := chat.NewService(alice.api)
	c, err := aliceChats.Create(ctx, alice.me.ID, bob.me.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	bobInbox := make(chan chat.Message, 8)
	bobSession := chat.NewSession(chat.NewService(bob.api), bob.creds, c.ID, chat.SessionHandlers{
		OnMessage: func(m chat.Message) { bobInbox <- m },
	})
	defer bobSession.Close()

	aliceInbox := make(chan chat.Message, 8)
	aliceSession := chat.NewSession(aliceChats, alice.creds, c.ID, chat.SessionHandlers{
		OnMessage: func(m chat.Message) { aliceInbox <- m },
	})
	defer aliceSession.Close()

	if err := bobSession.Open(ctx); err != nil {
		t.Fatalf("bob open: %v", err)
	}
	if err := aliceSession.Open(ctx); err != nil {
		t.Fatalf("alice open: %v", err)
	}

	if err := aliceSession.Send("hello bob"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Both sides receive the server's authoritative copy, sender included.
	for name, inbox := range map[string]chan chat.Message{"bob": bobInbox, "alice": aliceInbox} {
		select {
		case m := <-inbox:
			if m.Text != "hello bob" || m.SenderUsername != "alice" {
				t.Fatalf("%s got unexpected message: %+v", name, m)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never received the message", name)
		}
	}

	// A late joiner sees the message as seeded history.
	lateSession := chat.NewSession(chat.NewService(bob.api), bob.creds, c.ID, chat.SessionHandlers{})
	defer lateSession.Close()
	if err := lateSession.Open(ctx); err != nil {
		t.Fatalf("late open: %v", err)
	}
	msgs := lateSession.Messages()
	if len(msgs) != 1 || msgs[0].Text != "hello bob" {
		t.Fatalf("late joiner missed history: %+v", msgs)
	}
}

func TestCallLifecycle(t *testing.T) {
	baseURL := startStub(t)
	alice := signup(t, baseURL, "alice")
	bob := signup(t, baseURL, "bob")
	ctx := context.Background()

	c, err := chat.NewService(alice.api).Create(ctx, alice.me.ID, bob.me.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	aliceCalls := call.NewService(alice.api)
	started, err := aliceCalls.Initiate(ctx, c.ID, "teaching")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if started.Status != call.StatusInitiated || started.JitsiRoomID == "" {
		t.Fatalf("unexpected call descriptor: %+v", started)
	}

	bobCalls := call.NewService(bob.api)
	active, _, err := bobCalls.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != started.ID {
		t.Fatalf("bob does not see the call: %+v", active)
	}

	accepted, err := bobCalls.Accept(ctx, started.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != call.StatusAccepted {
		t.Fatalf("expected accepted, got %q", accepted.Status)
	}

	ended, err := aliceCalls.End(ctx, started.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != call.StatusEnded {
		t.Fatalf("expected ended, got %q", ended.Status)
	}

	active, _, err = bobCalls.Active(ctx)
	if err != nil {
		t.Fatalf("active after end: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ended call still active: %+v", active)
	}
}
