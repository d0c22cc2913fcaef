package dto

import "time"

// ProjectInfo identifies the project an event happened on
type ProjectInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GitEventRecord is one normalized event as returned by the query API
type GitEventRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Platform  string      `json:"platform"`
	Action    string      `json:"action"`
	Project   ProjectInfo `json:"project"`
}
