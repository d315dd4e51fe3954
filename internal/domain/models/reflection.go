// internal/domain/models/reflection.go
package models

import "time"

// Reflection is a single card written during the REFLECT phase.
// Removal is a soft delete: IsActive flips to false and the row stays.
type Reflection struct {
	ID                string    `bson:"_id" json:"id"`
	MeetingID         string    `bson:"meeting_id" json:"meeting_id"`
	ReflectionGroupID string    `bson:"reflection_group_id" json:"reflection_group_id"`
	CreatorID         string    `bson:"creator_id" json:"creator_id"`
	Content           string    `bson:"content" json:"content"`
	IsActive          bool      `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// ReflectionGroup collects reflections during the GROUP phase.
// A group with no active reflections is deactivated.
type ReflectionGroup struct {
	ID        string    `bson:"_id" json:"id"`
	MeetingID string    `bson:"meeting_id" json:"meeting_id"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
