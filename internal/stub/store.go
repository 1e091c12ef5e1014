package stub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"skillswap/internal/call"
	"skillswap/internal/chat"
	"skillswap/internal/skill"
	"skillswap/internal/user"
)

// account is a stored user plus the hash that never leaves the stub.
type account struct {
	user.User
	PasswordHash []byte
}

// store is the stub's entire state: maps and a mutex. Durable storage is
// deliberately out of scope: the stub exists so the SDK and its tests can
// run with no infrastructure at all.
type store struct {
	mu sync.Mutex

	nextUserID    int
	nextChatID    int
	nextMessageID int
	nextSkillID   int
	nextCallID    int

	users       map[int]*account
	usersByName map[string]int
	chats       map[int]*chat.Chat
	messages    map[int][]chat.Message // per chat, ascending by creation
	skills      map[int]*skill.Skill
	calls       map[int]*call.Call
	refresh     map[string]int // refresh token -> user id
}

func newStore() *store {
	return &store{
		users:       make(map[int]*account),
		usersByName: make(map[string]int),
		chats:       make(map[int]*chat.Chat),
		messages:    make(map[int][]chat.Message),
		skills:      make(map[int]*skill.Skill),
		calls:       make(map[int]*call.Call),
		refresh:     make(map[string]int),
	}
}

func (s *store) createUser(username, email string, hash []byte) (*user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usersByName[username]; taken {
		return nil, false
	}
	s.nextUserID++
	acct := &account{
		User: user.User{
			ID:        s.nextUserID,
			Username:  username,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		},
		PasswordHash: hash,
	}
	s.users[acct.ID] = acct
	s.usersByName[username] = acct.ID
	u := acct.User
	return &u, true
}

func (s *store) userByName(username string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByName[username]
	if !ok {
		return nil, false
	}
	acct := *s.users[id]
	return &acct, true
}

func (s *store) userByID(id int) (*user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[id]
	if !ok {
		return nil, false
	}
	u := acct.User
	return &u, true
}

func (s *store) updateUser(id int, username, email *string) (*user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if username != nil && *username != "" && *username != acct.Username {
		if _, taken := s.usersByName[*username]; taken {
			return nil, false
		}
		delete(s.usersByName, acct.Username)
		acct.Username = *username
		s.usersByName[acct.Username] = id
	}
	if email != nil && *email != "" {
		acct.Email = *email
	}
	u := acct.User
	return &u, true
}

func (s *store) searchUsers(query string) []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.ToLower(query)
	var out []user.User
	for _, acct := range s.users {
		if strings.Contains(strings.ToLower(acct.Username), query) {
			out = append(out, acct.User)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// findOrCreateChat is idempotent per unordered participant pair.
func (s *store) findOrCreateChat(user1ID, user2ID int) *chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if (c.User1ID == user1ID && c.User2ID == user2ID) ||
			(c.User1ID == user2ID && c.User2ID == user1ID) {
			out := *c
			return &out
		}
	}
	s.nextChatID++
	c := &chat.Chat{
		ID:        s.nextChatID,
		User1ID:   user1ID,
		User2ID:   user2ID,
		CreatedAt: time.Now().UTC(),
	}
	s.chats[c.ID] = c
	out := *c
	return &out
}

func (s *store) chatByID(id int) (*chat.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, false
	}
	out := *c
	return &out, true
}

func (s *store) chatsForUser(userID int) []chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Chat
	for _, c := range s.chats {
		if c.User1ID == userID || c.User2ID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) createMessage(chatID, senderID int, senderUsername, text string) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	msg := chat.Message{
		ID:             s.nextMessageID,
		ChatID:         chatID,
		SenderID:       senderID,
		SenderUsername: senderUsername,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	return msg
}

// messagesPage returns one newest-first page plus the total count, matching
// the backend's wire contract.
func (s *store) messagesPage(chatID, limit, offset int) ([]chat.Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[chatID]
	total := len(all)

	page := make([]chat.Message, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, all[i])
	}
	return page, total
}

func (s *store) lastMessage(chatID int) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[chatID]
	if len(all) == 0 {
		return chat.Message{}, false
	}
	return all[len(all)-1], true
}

func (s *store) createSkill(userID int, in skill.Create) skill.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSkillID++
	sk := skill.Skill{
		ID:          s.nextSkillID,
		UserID:      userID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}
	s.skills[sk.ID] = &sk
	out := sk
	return out
}

func (s *store) skillByID(id int) (*skill.Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[id]
	if !ok {
		return nil, false
	}
	out := *sk
	return &out, true
}

func (s *store) updateSkill(id int, upd skill.Update) (*skill.Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[id]
	if !ok {
		return nil, false
	}
	if upd.Name != nil {
		sk.Name = *upd.Name
	}
	if upd.Description != nil {
		sk.Description = *upd.Description
	}
	out := *sk
	return &out, true
}

func (s *store) deleteSkill(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[id]; !ok {
		return false
	}
	delete(s.skills, id)
	return true
}

// listSkills filters by owner (0 = any), type ("" = any) and free-text
// query, newest first.
func (s *store) listSkills(ownerID int, skillType, query string) []skill.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.ToLower(query)
	var out []skill.Skill
	for _, sk := range s.skills {
		if ownerID != 0 && sk.UserID != ownerID {
			continue
		}
		if skillType != "" && sk.Type != skillType {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(sk.Name), query) &&
			!strings.Contains(strings.ToLower(sk.Description), query) {
			continue
		}
		out = append(out, *sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *store) createCall(chatID, callerID int, skillType, roomID string) call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCallID++
	c := call.Call{
		ID:          s.nextCallID,
		ChatID:      chatID,
		CallerID:    callerID,
		SkillType:   skillType,
		Status:      call.StatusInitiated,
		JitsiRoomID: roomID,
		CreatedAt:   time.Now().UTC(),
	}
	s.calls[c.ID] = &c
	out := c
	return out
}

func (s *store) callByID(id int) (*call.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, false
	}
	out := *c
	return &out, true
}

func (s *store) setCallStatus(id int, status string) (*call.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, false
	}
	c.Status = status
	out := *c
	return &out, true
}

func (s *store) activeCalls(userID int) []call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call.Call
	for _, c := range s.calls {
		if c.Status == call.StatusEnded || c.Status == call.StatusRejected {
			continue
		}
		ch, ok := s.chats[c.ChatID]
		if !ok || (ch.User1ID != userID && ch.User2ID != userID) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) saveRefreshToken(token string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = userID
}

// consumeRefreshToken rotates: a token is good for one exchange.
func (s *store) consumeRefreshToken(token string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refresh[token]
	if ok {
		delete(s.refresh, token)
	}
	return id, ok
}
