package service

import (
	"context"
	"encoding/json"

	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/dto"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/internal/repository/specification"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService runs the async title worker. Sessions created explicitly
// start as "New Chat"; after their first committed turn this consumer renames
// them from the opening message, off the request path.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub                *gochannel.GoChannel
	topicName             string
	chatSessionRepository contract.ChatSessionRepository
	notifier              SessionNotifier
	logger                logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	chatSessionRepository contract.ChatSessionRepository,
	notifier SessionNotifier,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:                pubSub,
		topicName:             topicName,
		chatSessionRepository: chatSessionRepository,
		notifier:              notifier,
		logger:                log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TurnCommittedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed messages would retry forever
		return
	}

	session, err := cs.chatSessionRepository.FindOne(ctx,
		specification.ByID{ID: payload.ChatSessionId},
		specification.UserOwnedBy{UserID: payload.UserId},
	)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to load session", map[string]interface{}{
			"session_id": payload.ChatSessionId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	if session == nil {
		// Deleted before the worker got to it.
		msg.Ack()
		return
	}

	// Only sessions still on the default title get renamed; a user-chosen
	// title is never overwritten.
	if session.Title != constant.ChatSessionDefaultTitle || payload.FirstUserMessage == "" {
		msg.Ack()
		return
	}

	title := deriveTitle(payload.FirstUserMessage)
	if err := cs.chatSessionRepository.Rename(ctx, session.Id, session.UserId, title); err != nil {
		cs.logger.Error("ConsumerService", "Failed to rename session", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	if cs.notifier != nil {
		cs.notifier.NotifySessionsChanged(session.UserId)
	}

	cs.logger.Info("ConsumerService", "Session title derived from first message", map[string]interface{}{
		"session_id": session.Id,
	})
	msg.Ack()
}
