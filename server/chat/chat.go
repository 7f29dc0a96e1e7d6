// Package chat implements the chat and presence subsystem on top of the
// room lifecycle manager. Messages are trimmed, length-capped and stripped
// of markup before they are stored or broadcast; typing indicators are pure
// relays with no stored state.
package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hisui-dev/watchparty/server/domain"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/room"
)

// maxMessageLength caps message content in runes.
const maxMessageLength = 500

type Service struct {
	rooms    *room.Service
	sanitize *bluemonday.Policy
	logger   logging.Logger
}

func NewService(rooms *room.Service, logger logging.Logger) *Service {
	return &Service{
		rooms:    rooms,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger.With("module", "chat"),
	}
}

// SendMessage constructs a message from user's input, appends it to the
// room history and broadcasts it to every other member. The constructed
// message is returned so the caller can answer the sender synchronously.
// Users with the developer badge bypass sanitization; the length cap still
// applies to them.
func (s *Service) SendMessage(r *room.Room, user domain.User, content string) (domain.Message, error) {
	if !r.HasUser(user.ID) {
		return domain.Message{}, domain.ErrNotInRoom
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	if runes := []rune(content); len(runes) > maxMessageLength {
		content = string(runes[:maxMessageLength])
	}
	if !user.HasBadge(domain.BadgeDeveloper) {
		content = s.sanitize.Sanitize(content)
	}

	message := domain.Message{
		ID:      uuid.NewString(),
		User:    user,
		Content: content,
	}

	s.rooms.AppendMessage(r, message)
	s.rooms.BroadcastExcept(r, user.ID, domain.EventRoomMessage, message)

	s.logger.Debug(context.Background(), "message sent", "room", r.ID(), "user", user.ID)
	return message, nil
}

// StartTyping relays a typing indicator to the other members. Events from
// non-members are dropped without an error.
func (s *Service) StartTyping(r *room.Room, user domain.User) {
	if !r.HasUser(user.ID) {
		return
	}
	s.rooms.BroadcastExcept(r, user.ID, domain.EventUserStartTyping, user.ID)
}

// StopTyping relays the end of a typing indicator.
func (s *Service) StopTyping(r *room.Room, user domain.User) {
	if !r.HasUser(user.ID) {
		return
	}
	s.rooms.BroadcastExcept(r, user.ID, domain.EventUserStopTyping, user.ID)
}
