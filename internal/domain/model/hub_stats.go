package model

import "time"

type HubStats struct {
	TotalTopics      int           `json:"total_topics"`
	TotalUsers       int           `json:"total_users"`
	TotalConnections int           `json:"total_connections"`
	DroppedEvents    uint64        `json:"dropped_events"`
	Uptime           time.Duration `json:"uptime"`
	Topics           []TopicStats  `json:"topics,omitempty"`
	Process          *ProcessStats `json:"process,omitempty"`
}

// ProcessStats describes the node process serving the hub.
type ProcessStats struct {
	PID           int32   `json:"pid"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
	RSSBytes      uint64  `json:"rss_bytes"`
	Goroutines    int     `json:"goroutines"`
}

type TopicStats struct {
	Topic       Topic `json:"topic"`
	Subscribers int   `json:"subscribers"`
	Mailbox     int   `json:"mailbox"`
}
