package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
)

// SendMessage validates and durably writes one message. The timestamp and
// ID are store-assigned; the read flag starts false.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID uint, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	var receiver models.User
	err := s.DB.WithContext(ctx).Select("id").First(&receiver, receiverID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	msg := models.ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		log.Error().Err(err).Uint("sender", senderID).Uint("receiver", receiverID).Msg("failed to save message")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &msg, nil
}

// History returns every message between the caller and the peer, oldest
// first. Fetching history acknowledges receipt: unread peer-to-caller
// messages are flipped to read before the rows are loaded, so the returned
// slice already reflects the acknowledgement.
func (s *Service) History(ctx context.Context, callerID, peerID uint) ([]models.ChatMessage, error) {
	if _, err := s.MarkRead(ctx, callerID, peerID); err != nil {
		return nil, err
	}

	var msgs []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			callerID, peerID, peerID, callerID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		log.Error().Err(err).Uint("caller", callerID).Uint("peer", peerID).Msg("failed to load history")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return msgs, nil
}

// MarkRead flips unread peer-to-caller messages to read. Idempotent.
func (s *Service) MarkRead(ctx context.Context, callerID, peerID uint) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, callerID, false).
		Update("is_read", true)
	if res.Error != nil {
		log.Error().Err(res.Error).Uint("caller", callerID).Uint("peer", peerID).Msg("failed to mark messages read")
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// Summaries returns one entry per peer the user has exchanged messages
// with: the most recent message either way and the unread count as of now.
// Ordered most recent conversation first.
func (s *Service) Summaries(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	var msgs []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// First occurrence per peer in the descending scan is the latest message.
	peerOrder := make([]uint, 0)
	latest := make(map[uint]models.ChatMessage)
	for _, m := range msgs {
		peerID := m.SenderID
		if m.SenderID == userID {
			peerID = m.ReceiverID
		}
		if _, seen := latest[peerID]; !seen {
			latest[peerID] = m
			peerOrder = append(peerOrder, peerID)
		}
	}
	if len(peerOrder) == 0 {
		return []models.ConversationSummary{}, nil
	}

	unread, err := s.unreadByPeer(ctx, userID)
	if err != nil {
		return nil, err
	}

	var peers []models.User
	if err := s.DB.WithContext(ctx).Select("id", "name", "role").Where("id IN ?", peerOrder).Find(&peers).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	peerByID := make(map[uint]models.User, len(peers))
	for _, p := range peers {
		peerByID[p.ID] = p
	}

	online, err := s.OnlineSet(ctx, peerOrder)
	if err != nil {
		// Presence is decoration; a Redis hiccup must not break the list.
		log.Warn().Err(err).Msg("presence lookup failed, showing peers offline")
		online = map[uint]bool{}
	}

	out := make([]models.ConversationSummary, 0, len(peerOrder))
	for _, peerID := range peerOrder {
		m := latest[peerID]
		p := peerByID[peerID]
		out = append(out, models.ConversationSummary{
			Peer: models.PeerInfo{
				ID:     peerID,
				Name:   p.Name,
				Role:   p.Role,
				Online: online[peerID],
			},
			LastMessage: models.LastMessage{
				Body:      m.Body,
				Timestamp: m.CreatedAt,
				IsOwn:     m.SenderID == userID,
			},
			UnreadCount: unread[peerID],
		})
	}
	return out, nil
}

func (s *Service) unreadByPeer(ctx context.Context, userID uint) (map[uint]int64, error) {
	type row struct {
		SenderID uint
		N        int64
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("sender_id, COUNT(*) AS n").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.SenderID] = r.N
	}
	return counts, nil
}
