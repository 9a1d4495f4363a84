package api

import (
	"petcare/domain"
	"petcare/notify"
)

const postCommandMaxSize = 64 * 1024 // 64 KiB

// PUT /api/reminders/:id request body
type reminderRequest struct {
	Time string `json:"time"`
}

type toggleResponse struct {
	Applied bool               `json:"applied"`
	Today   domain.DaySnapshot `json:"today"`
}

type reminderResponse struct {
	Applied   bool               `json:"applied"`
	Reminders domain.ReminderMap `json:"reminders"`
}

type catalogResponse struct {
	Tasks      []domain.TaskDefinition                 `json:"tasks"`
	Categories map[domain.Category]domain.CategoryInfo `json:"categories"`
}

type historyResponse struct {
	Dates   []string            `json:"dates"`
	History domain.History      `json:"history"`
	Missed  []domain.MissedTask `json:"missed"`
}

type notificationsResponse struct {
	Enabled    bool              `json:"enabled"`
	State      string            `json:"state"`
	Permission notify.Permission `json:"permission,omitempty"`
}

// POST /api/commands response body
type commandResult struct {
	Type      string `json:"type"`
	TaskID    string `json:"taskId,omitempty"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Result    string `json:"result,omitempty"`
}

type commandsResponse struct {
	Results []commandResult `json:"results"`
	Error   string          `json:"error,omitempty"`
}
