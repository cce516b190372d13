package app

import (
	"context"
	"log"

	"companybuddy/internal/model"
	"companybuddy/internal/repository"
)

type ConversationService struct {
	convRepo     *repository.ConversationRepository
	msgRepo      *repository.MessageRepository
	historyCache HistoryCache
}

func NewConversationService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	historyCache HistoryCache,
) *ConversationService {
	return &ConversationService{
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		historyCache: historyCache,
	}
}

func (s *ConversationService) List(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.convRepo.ListByUserID(userID)
}

func (s *ConversationService) Messages(userID, conversationID uint, limit int) ([]model.Message, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	conversation, err := s.convRepo.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return s.msgRepo.ListByConversationID(conversationID, limit)
}

func (s *ConversationService) Delete(ctx context.Context, userID, conversationID uint) error {
	if userID == 0 || conversationID == 0 {
		return ErrInvalidInput
	}
	conversation, err := s.convRepo.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}

	if err := s.msgRepo.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.convRepo.DeleteByIDAndUserID(conversationID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, conversationID); err != nil {
			log.Printf("drop cached history for conversation %d failed: %v", conversationID, err)
		}
	}
	return nil
}
