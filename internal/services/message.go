package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/cache"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/metrics"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/store"
)

// Origin is the session a frame arrived on.
type Origin interface {
	UserID() string
	RoomID() string
	// Deliver queues an encoded frame for this session only.
	Deliver(payload []byte) bool
}

// Broadcaster fans an encoded frame out to every live session of a room
// and reports how many sessions accepted it.
type Broadcaster interface {
	Broadcast(roomID string, payload []byte) int
}

// MessageService runs the ingest pipeline for chat messages:
// ensure user and room, insert idempotently, ack the sender, broadcast.
type MessageService struct {
	store store.Store
	rooms Broadcaster
	cache PageCache
	log   zerolog.Logger
}

// NewMessageService creates a new MessageService instance.
// A nil cache disables history cache invalidation.
func NewMessageService(st store.Store, rooms Broadcaster, pc PageCache, logger zerolog.Logger) *MessageService {
	if pc == nil {
		pc = cache.Nop{}
	}
	return &MessageService{
		store: st,
		rooms: rooms,
		cache: pc,
		log:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Handle processes one inbound message frame from origin. It never returns an
// error: failures are reported to origin as error frames and never broadcast.
func (s *MessageService) Handle(ctx context.Context, origin Origin, frame models.InboundFrame) {
	msg, problem := newMessage(origin, frame)
	if problem != "" {
		s.fail(origin, models.ErrCodeInvalidMessage, problem)
		return
	}

	if err := s.store.EnsureUserAndRoom(ctx, msg.SenderID, msg.RoomID); err != nil {
		s.log.Error().Err(err).Str("room", msg.RoomID).Str("user", msg.SenderID).Msg("ensure user and room failed")
		s.fail(origin, models.ErrCodeMessageFailed, "message could not be saved")
		return
	}

	stored, created, err := s.store.InsertMessage(ctx, msg)
	if err != nil {
		s.log.Error().Err(err).Str("room", msg.RoomID).Str("user", msg.SenderID).Msg("insert message failed")
		s.fail(origin, models.ErrCodeMessageFailed, "message could not be saved")
		return
	}

	if created {
		metrics.MessagesPersisted.Inc()
		if err := s.cache.Invalidate(ctx, stored.RoomID); err != nil {
			s.log.Warn().Err(err).Str("room", stored.RoomID).Msg("history cache invalidation failed")
		}
	} else {
		metrics.MessagesDeduplicated.Inc()
		s.log.Debug().Str("room", stored.RoomID).Str("id", stored.ID).Msg("duplicate send resolved to existing row")
	}

	var token *string
	if t := frame.Token(); t != "" {
		token = &t
	}
	s.send(origin, models.NewAck(token, stored))

	// A replayed token was already fanned out by the send that created the row.
	if !created {
		return
	}
	payload, err := json.Marshal(models.NewMessageFrame(*stored))
	if err != nil {
		s.log.Error().Err(err).Str("id", stored.ID).Msg("encode broadcast")
		return
	}
	n := s.rooms.Broadcast(stored.RoomID, payload)
	s.log.Debug().Str("room", stored.RoomID).Str("id", stored.ID).Int("recipients", n).Msg("message broadcast")
}

// messageInput carries the validated fields of a message frame.
type messageInput struct {
	MsgType  string `validate:"required,max=32"`
	Content  string `validate:"required_without=MediaURL"`
	MediaURL string `validate:"required_without=Content"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// newMessage validates frame and builds the row to insert. A non-empty
// problem describes why the frame was rejected.
func newMessage(origin Origin, frame models.InboundFrame) (*models.Message, string) {
	msgType := frame.MsgType
	if msgType == "" {
		msgType = models.MsgTypeText
	}
	in := messageInput{MsgType: msgType, Content: frame.Content, MediaURL: frame.MediaURL}
	if err := validate.Struct(in); err != nil {
		return nil, describe(err)
	}

	msg := &models.Message{
		RoomID:   origin.RoomID(),
		SenderID: origin.UserID(),
		MsgType:  msgType,
		Content:  frame.Content,
		Metadata: frame.Metadata,
	}
	if t := frame.Token(); t != "" {
		msg.ClientID = &t
	}
	if frame.MediaURL != "" {
		u := frame.MediaURL
		msg.MediaURL = &u
	}
	return msg, ""
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid message"
	}
	switch verrs[0].Field() {
	case "MsgType":
		return fmt.Sprintf("msgType must be at most %d characters", models.MaxMsgTypeLen)
	default:
		return "content or mediaUrl is required"
	}
}

func (s *MessageService) fail(origin Origin, code, message string) {
	metrics.MessagesFailed.WithLabelValues(code).Inc()
	s.send(origin, models.NewError(code, message))
}

func (s *MessageService) send(origin Origin, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Msg("encode reply")
		return
	}
	if !origin.Deliver(payload) {
		s.log.Debug().Str("user", origin.UserID()).Msg("reply dropped, session closed or backlogged")
	}
}
