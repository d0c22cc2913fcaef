package domain

import "time"

// GitPlatform is one row per source-control platform. FirstSync doubles as the
// sync watermark: the end of the last successfully reconciled window.
type GitPlatform struct {
	Name      string    `json:"name" gorm:"primaryKey"`
	FirstSync time.Time `json:"first_sync" gorm:"not null"`
}

// GitProject is a repository/project as known to one platform
type GitProject struct {
	ID                string `json:"id" gorm:"primaryKey"`
	Platform          string `json:"platform" gorm:"uniqueIndex:idx_platform_project;not null"`
	PlatformProjectID int64  `json:"platform_project_id" gorm:"uniqueIndex:idx_platform_project;not null"`
	Name              string `json:"name" gorm:"not null"`
	URL               string `json:"url"`
}

// GitAction is a canonical action label ("pushed", "merged", ...). Raw
// platform action strings are mapped to this vocabulary before lookup/insert.
type GitAction struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// Event is a pure timestamp record, UTC at second precision
type Event struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
}

// GitEvent ties an Event to a project and an action. It shares its primary key
// with the Event row; this table plus Event is the unit of "this happened".
type GitEvent struct {
	ID        string `json:"id" gorm:"primaryKey"`
	ActionID  string `json:"action_id" gorm:"index;not null"`
	ProjectID string `json:"project_id" gorm:"index;not null"`
}
