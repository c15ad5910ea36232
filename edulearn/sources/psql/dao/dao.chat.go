// edulearn/sources/psql/dao/dao.chat.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatSessionDAO is the Postgres document store for chat sessions.
type ChatSessionDAO struct {
	DB *gorm.DB
}

func NewChatSessionDAO(db *gorm.DB) *ChatSessionDAO {
	return &ChatSessionDAO{DB: db}
}

func (dao *ChatSessionDAO) ListByOwner(ctx context.Context, ownerID string) ([]chatsession.SessionRecord, error) {
	var rows []models.ChatSession
	err := dao.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	recs := make([]chatsession.SessionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (dao *ChatSessionDAO) Create(ctx context.Context, ownerID string, rec chatsession.SessionRecord) (string, error) {
	msgs, err := marshalMessages(rec.Messages)
	if err != nil {
		return "", err
	}
	row := models.ChatSession{
		OwnerID:   ownerID,
		Title:     rec.Title,
		Starred:   rec.Starred,
		Messages:  msgs,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if err := dao.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID.String(), nil
}

func (dao *ChatSessionDAO) Update(ctx context.Context, id string, patch chatsession.Patch) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
	}
	updates := map[string]interface{}{"updated_at": patch.UpdatedAt}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Starred != nil {
		updates["starred"] = *patch.Starred
	}
	if patch.Messages != nil {
		msgs, err := marshalMessages(patch.Messages)
		if err != nil {
			return err
		}
		updates["messages"] = msgs
	}
	res := dao.DB.WithContext(ctx).Model(&models.ChatSession{}).Where("id = ?", uid).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
	}
	return nil
}

func (dao *ChatSessionDAO) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
	}
	return dao.DB.WithContext(ctx).Where("id = ?", uid).Delete(&models.ChatSession{}).Error
}

func marshalMessages(msgs []chatsession.MessageRecord) (datatypes.JSON, error) {
	if msgs == nil {
		msgs = []chatsession.MessageRecord{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func toRecord(row models.ChatSession) (chatsession.SessionRecord, error) {
	rec := chatsession.SessionRecord{
		ID:        row.ID.String(),
		Title:     row.Title,
		Starred:   row.Starred,
		OwnerID:   row.OwnerID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Messages:  []chatsession.MessageRecord{},
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &rec.Messages); err != nil {
			return rec, fmt.Errorf("session %s: decode messages: %w", rec.ID, err)
		}
	}
	return rec, nil
}
