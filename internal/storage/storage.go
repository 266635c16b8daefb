package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
)

// Storage is everything the rest of the system needs from the durable and
// presence stores. The hub and handlers depend on this interface so tests
// can substitute mocks.
type Storage interface {
	SendMessage(ctx context.Context, senderID, receiverID uint, body string) (*models.ChatMessage, error)
	History(ctx context.Context, callerID, peerID uint) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, callerID, peerID uint) (int64, error)
	Summaries(ctx context.Context, userID uint) ([]models.ConversationSummary, error)

	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	SetOnline(ctx context.Context, userID uint) error
	SetOffline(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
	OnlineSet(ctx context.Context, userIDs []uint) (map[uint]bool, error)
}

// Service implements Storage over Postgres (gorm) and Redis. Redis may be
// nil; presence then reports everyone offline.
type Service struct {
	DB          *gorm.DB
	Redis       *redis.Client
	PresenceTTL time.Duration
}

func NewService(db *gorm.DB, rdb *redis.Client, presenceTTL time.Duration) *Service {
	return &Service{DB: db, Redis: rdb, PresenceTTL: presenceTTL}
}
