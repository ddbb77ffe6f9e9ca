package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Participant is the persisted record of one connected participant.
// SessionID stays NULL until matchmaking claims the participant.
type Participant struct {
	ID            uint    `gorm:"primaryKey"`
	ParticipantID string  `gorm:"uniqueIndex;not null"`
	SessionID     *string `gorm:"index"`
	CreatedAt     time.Time
}

// Session is the persisted record of one game session. Participants holds the
// cohort's ids JSON-encoded, in seat order.
type Session struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"uniqueIndex;not null"`
	Participants string `gorm:"not null"`
	Active       bool   `gorm:"not null"`
	CreatedAt    time.Time
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Participant{}, &Session{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// GormParticipantStore implements ParticipantStore on a GORM handle.
type GormParticipantStore struct {
	db *gorm.DB
}

func NewGormParticipantStore(db *gorm.DB) *GormParticipantStore {
	return &GormParticipantStore{db: db}
}

func (s *GormParticipantStore) Save(ctx context.Context, participantID string) error {
	rec := Participant{ParticipantID: participantID}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *GormParticipantStore) Remove(ctx context.Context, participantID string) error {
	if err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Delete(&Participant{}).Error; err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

func (s *GormParticipantStore) AssignToSession(ctx context.Context, participantIDs []string, sessionID string) error {
	if err := s.db.WithContext(ctx).
		Model(&Participant{}).
		Where("participant_id IN ?", participantIDs).
		Update("session_id", sessionID).Error; err != nil {
		return fmt.Errorf("assign participants: %w", err)
	}
	return nil
}

func (s *GormParticipantStore) FetchUnassigned(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&Participant{}).
		Where("session_id IS NULL").
		Order("id").
		Pluck("participant_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("fetch unassigned participants: %w", err)
	}
	return ids, nil
}

// GormSessionStore implements SessionStore on a GORM handle.
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, sessionID string, participantIDs []string) error {
	encoded, err := json.Marshal(participantIDs)
	if err != nil {
		return fmt.Errorf("encode participant ids: %w", err)
	}
	rec := Session{SessionID: sessionID, Participants: string(encoded), Active: true}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *GormSessionStore) SetActive(ctx context.Context, sessionID string, active bool) error {
	if err := s.db.WithContext(ctx).
		Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("active", active).Error; err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

func (s *GormSessionStore) Remove(ctx context.Context, sessionID string) error {
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&Session{}).Error; err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
