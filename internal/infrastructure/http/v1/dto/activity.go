package dto

import (
	"encoding/json"
	"time"

	"bakehouse/internal/domain/activity"
)

// ActivityQuery filters the activity log.
type ActivityQuery struct {
	Branch []string `form:"branch"`
	Action string   `form:"action"`
	From   string   `form:"from" binding:"omitempty,isodate"`
	To     string   `form:"to" binding:"omitempty,isodate"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ToFilter converts the query. To is inclusive of the whole day.
func (q ActivityQuery) ToFilter() activity.Filter {
	f := activity.Filter{
		Branches: q.Branch,
		Action:   activity.Action(q.Action),
		Limit:    q.Limit,
	}
	if from := ParseDate(q.From); !from.IsZero() {
		f.From = &from
	}
	if to := ParseDate(q.To); !to.IsZero() {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	return f
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	ID         string          `json:"id"`
	Branch     string          `json:"branch,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	UserID     string          `json:"userId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromActivityEntries converts entries; never returns nil.
func FromActivityEntries(es []*activity.Entry) []ActivityResponse {
	out := make([]ActivityResponse, len(es))
	for i, e := range es {
		out[i] = ActivityResponse{
			ID:         e.ID.String(),
			Branch:     e.Branch,
			Action:     string(e.Action),
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			UserID:     e.UserID,
			Payload:    e.Payload,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}
