package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// sessionInboxSize bounds how many updates and build results may wait for a
// busy worker before Send blocks.
const sessionInboxSize = 10

// BotState owns the per-user sessions. A session and its worker are created on
// the first update from an allowed user and live until Shutdown.
type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (b *Bot) NewBotState() BotState {
	return BotState{
		bot:      b,
		sessions: make(map[int64]*UserSession),
	}
}

func (bs *BotState) getUserSession(userId int64) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if session, ok := bs.sessions[userId]; ok {
		return session
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &UserSession{
		userId: userId,
		sender: bs.bot.tg,
		inbox:  make(chan SessionMessage, sessionInboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	session.SetHandler(bs.bot)
	session.StartWorker()
	bs.sessions[userId] = session

	log.Info().Int64("userId", userId).Int("sessions", len(bs.sessions)).Msg("started user session")
	return session
}

// Shutdown cancels running builds and stops every session worker.
func (bs *BotState) Shutdown() {
	bs.mu.Lock()
	sessions := bs.sessions
	bs.sessions = make(map[int64]*UserSession)
	bs.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *UserSession) {
			defer wg.Done()
			s.Stop()
		}(session)
	}
	wg.Wait()
	log.Info().Int("count", len(sessions)).Msg("stopped user sessions")
}
