package models

import "time"

// UserStats are per-user counters, mutated incrementally on chat
// start/message/end. Not authoritative; the admin dashboard reads them.
type UserStats struct {
	UserID          string    `bson:"_id" json:"user_id"`
	ChatsStarted    int64     `bson:"chats_started" json:"chats_started"`
	ChatsCompleted  int64     `bson:"chats_completed" json:"chats_completed"`
	MessagesSent    int64     `bson:"messages_sent" json:"messages_sent"`
	TotalMinutes    int64     `bson:"total_minutes" json:"total_minutes"`
	AvgMessages     float64   `bson:"avg_messages" json:"avg_messages"`
	AvgDurationMins float64   `bson:"avg_duration_mins" json:"avg_duration_mins"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// AppStatsID is the fixed document id of the app-wide counter doc.
const AppStatsID = "global"

type AppStats struct {
	ID              string    `bson:"_id" json:"-"`
	TotalChats      int64     `bson:"total_chats" json:"total_chats"`
	ActiveChats     int64     `bson:"active_chats" json:"active_chats"`
	CompletedChats  int64     `bson:"completed_chats" json:"completed_chats"`
	TotalMessages   int64     `bson:"total_messages" json:"total_messages"`
	SupportChats    int64     `bson:"support_chats" json:"support_chats"`
	AvgMessages     float64   `bson:"avg_messages" json:"avg_messages"`
	AvgDurationMins float64   `bson:"avg_duration_mins" json:"avg_duration_mins"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}
