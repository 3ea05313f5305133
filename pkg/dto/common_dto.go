package dto

import "io"

// Pagination is bound from ?page=&limit= query strings.
type Pagination struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults and returns the row offset.
func (p *Pagination) Normalize(defaultLimit int) int {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages rounds total/limit up.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return pages
}

type UserSummary struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// UploadFile is a file handed from a multipart form to a service.
type UploadFile struct {
	Reader   io.Reader
	FileName string
}

// RunnerLevel is a runner's standing based on all-time distance, plus a
// label for recent activity.
type RunnerLevel struct {
	Name           string  `json:"name"`
	NextLevel      string  `json:"nextLevel"`
	TotalDistance  float64 `json:"totalDistance"`
	TargetDistance float64 `json:"targetDistance"`
	Progress       float64 `json:"progress"`
	WeeklyDistance float64 `json:"weeklyDistance"`
	WeeklyLabel    string  `json:"weeklyLabel,omitempty"`
}
