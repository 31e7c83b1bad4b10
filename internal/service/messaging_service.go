package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"gorm.io/gorm"
)

const approvalMessage = "Conversation approved. You can now message freely!"

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Notifier receives change notifications after every conversation or message
// mutation. The realtime hub implements it; a nil Notifier disables fan-out.
type Notifier interface {
	ConversationChanged(userIDs ...string)
	MessagesChanged(convID uint64)
}

// ConversationView is a conversation annotated for the inbox: the caller's
// role, a listing summary and the counterpart's display name.
type ConversationView struct {
	model.Conversation
	UserRole         string  `json:"userRole"`
	ListingTitle     string  `json:"listingTitle"`
	ListingPrice     float64 `json:"listingPrice"`
	CounterpartName  string  `json:"counterpartName"`
	CounterpartUID   string  `json:"counterpartUid"`
	ListingAvailable bool    `json:"listingAvailable"`
}

// RequestView is a pending conversation in the seller's action queue.
type RequestView struct {
	model.Conversation
	BuyerName    string  `json:"buyerName"`
	ListingTitle string  `json:"listingTitle"`
	ListingPrice float64 `json:"listingPrice"`
}

type MessagingService interface {
	CreateConversationRequest(ctx context.Context, listingID uint64, buyerID, initialMessage string) (*model.Conversation, error)
	UpdateConversationStatus(ctx context.Context, convID uint64, status, actingSellerID string) error
	AddMessage(ctx context.Context, convID uint64, senderID, text, msgType string) (*model.Message, error)
	GetUserConversations(ctx context.Context, userID string) ([]ConversationView, error)
	GetPendingRequests(ctx context.Context, sellerID string) ([]RequestView, error)
	GetConversationMessages(ctx context.Context, convID uint64, userID string) ([]model.Message, error)
}

type messagingService struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	notifier    Notifier

	// nameMu guards names, a lazily populated display-name cache. Never
	// authoritative: a miss falls back to the role label, and entries are
	// overwritten whenever the user row is re-read.
	nameMu sync.RWMutex
	names  map[string]string
}

func NewMessagingService(convRepo repository.ConversationRepository, listingRepo repository.ListingRepository, userRepo repository.UserRepository, notifier Notifier) MessagingService {
	return &messagingService{
		convRepo:    convRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		names:       make(map[string]string),
	}
}

func (s *messagingService) CreateConversationRequest(ctx context.Context, listingID uint64, buyerID, initialMessage string) (*model.Conversation, error) {
	initialMessage = strings.TrimSpace(initialMessage)
	if initialMessage == "" {
		return nil, errors.New("initial message is required")
	}
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if listing.Status != model.ListingStatusActive {
		return nil, errors.New("listing is no longer available")
	}
	if listing.UserID == buyerID {
		return nil, errors.New("cannot message your own listing")
	}

	// The unique index on (listing_id, buyer_id) closes the race this
	// check leaves open; the check itself exists for the friendly error.
	if _, err := s.convRepo.FindByListingAndBuyer(ctx, listingID, buyerID); err == nil {
		return nil, ErrDuplicateConversation
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	cv := &model.Conversation{
		ListingID:           listingID,
		SellerID:            listing.UserID,
		BuyerID:             buyerID,
		Status:              model.ConversationStatusPending,
		InitialMessage:      initialMessage,
		LastMessage:         initialMessage,
		LastMessageAt:       &now,
		LastMessageSenderID: buyerID,
	}
	if err := s.convRepo.Create(ctx, cv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateConversation
		}
		return nil, err
	}
	s.notifyConversation(cv.BuyerID, cv.SellerID)
	return cv, nil
}

func (s *messagingService) UpdateConversationStatus(ctx context.Context, convID uint64, status, actingSellerID string) error {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if cv.SellerID != actingSellerID {
		return ErrUnauthorized
	}

	switch status {
	case model.ConversationStatusApproved:
		if cv.Status != model.ConversationStatusPending {
			return ErrInvalidTransition
		}
		if err := s.convRepo.Update(ctx, convID, map[string]interface{}{
			"status":     model.ConversationStatusApproved,
			"updated_at": time.Now(),
		}); err != nil {
			return err
		}
		cv.Status = model.ConversationStatusApproved
		if _, err := s.appendMessage(ctx, cv, actingSellerID, approvalMessage, model.MessageTypeSystem); err != nil {
			return err
		}
	case model.ConversationStatusRejected:
		if cv.Status != model.ConversationStatusPending {
			return ErrInvalidTransition
		}
		// Hard delete, messages included. Viewers must treat the
		// disappearance as a terminal rejection.
		if err := s.convRepo.DeleteWithMessages(ctx, convID); err != nil {
			return err
		}
	default:
		return ErrInvalidTransition
	}

	s.notifyConversation(cv.BuyerID, cv.SellerID)
	return nil
}

func (s *messagingService) AddMessage(ctx context.Context, convID uint64, senderID, text, msgType string) (*model.Message, error) {
	if msgType == "" {
		msgType = model.MessageTypeMessage
	}
	if msgType != model.MessageTypeMessage && msgType != model.MessageTypeSystem {
		return nil, errors.New("invalid message type")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text is required")
	}
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if cv.BuyerID != senderID && cv.SellerID != senderID {
		return nil, ErrForbidden
	}
	if msgType == model.MessageTypeMessage && cv.Status != model.ConversationStatusApproved {
		return nil, ErrNotApproved
	}

	msg, err := s.appendMessage(ctx, cv, senderID, text, msgType)
	if err != nil {
		return nil, err
	}
	s.notifyConversation(cv.BuyerID, cv.SellerID)
	return msg, nil
}

// appendMessage inserts the row and mirrors it into the parent's
// denormalized last-message fields.
func (s *messagingService) appendMessage(ctx context.Context, cv *model.Conversation, senderID, text, msgType string) (*model.Message, error) {
	msg := &model.Message{
		ConversationID: cv.ID,
		SenderID:       senderID,
		Text:           text,
		Type:           msgType,
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.convRepo.Update(ctx, cv.ID, map[string]interface{}{
		"last_message":           text,
		"last_message_at":        now,
		"last_message_sender_id": senderID,
		"updated_at":             now,
	}); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.MessagesChanged(cv.ID)
	}
	return msg, nil
}

func (s *messagingService) GetUserConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	asBuyer, err := s.convRepo.FindByBuyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	asSeller, err := s.convRepo.FindBySeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(asBuyer)+len(asSeller))
	for _, cv := range asBuyer {
		if cv.Status == model.ConversationStatusPending {
			continue
		}
		views = append(views, s.buildView(ctx, cv, RoleBuyer))
	}
	for _, cv := range asSeller {
		if cv.Status == model.ConversationStatusPending {
			continue
		}
		views = append(views, s.buildView(ctx, cv, RoleSeller))
	}

	// Newest activity first; conversations with no messages fall back to
	// the zero time and sort last.
	sort.SliceStable(views, func(i, j int) bool {
		return lastMessageTime(views[i].Conversation).After(lastMessageTime(views[j].Conversation))
	})
	return views, nil
}

func lastMessageTime(cv model.Conversation) time.Time {
	if cv.LastMessageAt == nil {
		return time.Time{}
	}
	return *cv.LastMessageAt
}

func (s *messagingService) GetPendingRequests(ctx context.Context, sellerID string) ([]RequestView, error) {
	pending, err := s.convRepo.FindPendingBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(pending))
	for _, cv := range pending {
		view := RequestView{
			Conversation: cv,
			BuyerName:    s.displayName(ctx, cv.BuyerID, "Buyer"),
		}
		if listing, err := s.listingRepo.FindByID(ctx, cv.ListingID); err == nil {
			view.ListingTitle = listing.Title
			view.ListingPrice = listing.Price
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *messagingService) GetConversationMessages(ctx context.Context, convID uint64, userID string) ([]model.Message, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if cv.BuyerID != userID && cv.SellerID != userID {
		return nil, ErrForbidden
	}
	return s.convRepo.ListMessages(ctx, convID)
}

func (s *messagingService) buildView(ctx context.Context, cv model.Conversation, role string) ConversationView {
	view := ConversationView{Conversation: cv, UserRole: role}
	counterpart, fallback := cv.SellerID, "Seller"
	if role == RoleSeller {
		counterpart, fallback = cv.BuyerID, "Buyer"
	}
	view.CounterpartUID = counterpart
	view.CounterpartName = s.displayName(ctx, counterpart, fallback)
	if listing, err := s.listingRepo.FindByID(ctx, cv.ListingID); err == nil {
		view.ListingTitle = listing.Title
		view.ListingPrice = listing.Price
		view.ListingAvailable = listing.Status == model.ListingStatusActive
	}
	return view
}

func (s *messagingService) displayName(ctx context.Context, uid, fallback string) string {
	s.nameMu.RLock()
	name, ok := s.names[uid]
	s.nameMu.RUnlock()
	if ok {
		return name
	}
	user, err := s.userRepo.FindByUID(ctx, uid)
	if err != nil {
		return fallback
	}
	name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = fallback
	}
	s.nameMu.Lock()
	s.names[uid] = name
	s.nameMu.Unlock()
	return name
}

func (s *messagingService) notifyConversation(userIDs ...string) {
	if s.notifier != nil {
		s.notifier.ConversationChanged(userIDs...)
	}
}
