package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// RedisHistory keeps chat history in Redis lists, one list per session
type RedisHistory struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

type messageModel struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // unix micro
}

// Session hash fields, unix micro.
const (
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// NewRedisHistory creates a Redis history store and checks connectivity
func NewRedisHistory(ctx context.Context, client *redis.Client, prefix string) (*RedisHistory, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisHistory{client: client, prefix: prefix, now: time.Now}, nil
}

// GetSession retrieves a session by ID
func (r *RedisHistory) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	createdAt, err := parseMicros(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	updatedAt, err := parseMicros(fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	return &domain.Session{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt}, nil
}

// GetMessages retrieves all messages for a session in append order
func (r *RedisHistory) GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	items, err := r.client.LRange(ctx, r.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get session messages: %w", err)
	}

	messages := make([]*domain.Message, 0, len(items))
	for _, item := range items {
		msg, err := decodeMessage(sessionID, item)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AppendMessages appends messages to a session in one MULTI/EXEC block
func (r *RedisHistory) AppendMessages(ctx context.Context, sessionID string, messages ...*domain.Message) error {
	if sessionID == "" {
		return &domain.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}

	now := r.now().UTC()
	encoded := make([]any, 0, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.SessionID = sessionID

		data, err := encodeMessage(m)
		if err != nil {
			return err
		}
		encoded = append(encoded, data)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := r.sessionKey(sessionID)
		pipe.HSetNX(ctx, key, fieldCreatedAt, now.UnixMicro())
		pipe.HSet(ctx, key, fieldUpdatedAt, now.UnixMicro())
		if len(encoded) > 0 {
			pipe.RPush(ctx, r.messagesKey(sessionID), encoded...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append session messages: %w", err)
	}
	return nil
}

func (r *RedisHistory) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *RedisHistory) messagesKey(id string) string {
	return fmt.Sprintf("%s:session_messages:%s", r.prefix, id)
}

func parseMicros(v string) (time.Time, error) {
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(us).UTC(), nil
}

func encodeMessage(m *domain.Message) (string, error) {
	data, err := json.Marshal(messageModel{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixMicro(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	return string(data), nil
}

func decodeMessage(sessionID, data string) (*domain.Message, error) {
	var m messageModel
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &domain.Message{
		ID:        m.ID,
		SessionID: sessionID,
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		CreatedAt: time.UnixMicro(m.CreatedAt).UTC(),
	}, nil
}
