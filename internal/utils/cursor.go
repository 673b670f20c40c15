package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// TaskCursor is a keyset position in the admin task list (updated_at DESC, id DESC).
type TaskCursor struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
}

func EncodeTaskCursor(updatedAt time.Time, id string) (string, error) {
	b, err := json.Marshal(TaskCursor{UpdatedAt: updatedAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeTaskCursor(cursor string) (TaskCursor, error) {
	if cursor == "" {
		return TaskCursor{}, errors.New("empty cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return TaskCursor{}, err
	}
	var c TaskCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return TaskCursor{}, err
	}
	if c.ID == "" || c.UpdatedAt.IsZero() {
		return TaskCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}

// FirstTaskCursor sorts after every real row, so the first page needs no special case.
func FirstTaskCursor() TaskCursor {
	return TaskCursor{
		UpdatedAt: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
		ID:        "ffffffff-ffff-ffff-ffff-ffffffffffff",
	}
}
