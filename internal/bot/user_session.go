package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message *tgbotapi.Message
	Text    string

	// Background build data
	BuildResult *BuildResult // For build_complete messages
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// activeBuild tracks a build running in the background for a session.
type activeBuild struct {
	id        string
	cancel    context.CancelFunc
	startedAt time.Time
}

// UserSession represents a user's session with the bot.
//
// Each session has a dedicated worker goroutine that processes messages
// sequentially. Handlers run only on the worker and access session state
// without locks; the exported accessors lock for other callers.
type UserSession struct {
	userId int64
	sender MessageSender
	mu     sync.Mutex

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	build *activeBuild
}

// IsBuilding reports whether a build is running for the user.
func (s *UserSession) IsBuilding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build != nil
}

func (s *UserSession) setBuild(b *activeBuild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.build = b
}

// finishBuild clears the active build if it is the one with the given id.
// Returns false for a result of a build that was already replaced or reset.
func (s *UserSession) finishBuild(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.build == nil || s.build.id != id {
		return false
	}
	s.build.cancel()
	s.build = nil
	return true
}

// cancelBuild stops the running build, if any.
func (s *UserSession) cancelBuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.build != nil {
		log.Info().
			Int64("userId", s.userId).
			Str("buildId", s.build.id).
			Dur("elapsed", time.Since(s.build.startedAt)).
			Msg("cancelling build")
		s.build.cancel()
		s.build = nil
	}
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s.reply(MsgUnexpectedErr, escapeMarkdown(err.Error()))
}

// sendChatAction sends a chat action such as "typing" or "upload_document".
// The indicator automatically expires after ~5 seconds in Telegram.
func (s *UserSession) sendChatAction(action string) {
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	_, err := s.sender.Request(tgbotapi.NewChatAction(s.userId, action))
	if err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send chat action")
	}
}

// startChatActionLoop repeats the chat action every 4 seconds until the
// context is cancelled. Run it in a goroutine.
func (s *UserSession) startChatActionLoop(ctx context.Context, action string) {
	s.sendChatAction(action)

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendChatAction(action)
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Info().Str("text", msg.Text).Int("messageId", sent.MessageID).Msg("sent message")
	}

	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// sendDocument uploads a file to the user's chat.
func (s *UserSession) sendDocument(name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(s.userId, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.sender.Send(doc); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	log.Info().Int64("userId", s.userId).Str("name", name).Int("bytes", len(data)).Msg("sent document")
	return nil
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

// runWorker is the main worker loop that processes messages sequentially.
func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

// processMessage handles a single message from the inbox.
func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	// A stopped worker never drains the inbox
	if s.ctx.Err() != nil {
		if msg.Done != nil {
			close(msg.Done)
		}
		return
	}
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
// Returns when the message has been fully processed by the worker.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop cancels any running build, stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancelBuild()
	s.cancel()
	s.wg.Wait()
}
