package dto

import commonDto "runtoyou.app/runtoyou/pkg/dto"

const (
	MetricDistance  = "distance"
	MetricDuration  = "duration"
	MetricElevation = "elevation"
	MetricRuns      = "runs"

	TimeframeAllTime = "all_time"
	TimeframeMonthly = "monthly"
	TimeframeWeekly  = "weekly"
)

type Query struct {
	Metric    string `form:"metric" json:"metric" binding:"omitempty,oneof=distance duration elevation runs"`
	Timeframe string `form:"timeframe" json:"timeframe" binding:"omitempty,oneof=all_time monthly weekly"`
	Limit     int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=50"`
}

// LeaderboardEntry is one runner's standing. Rank is shared on ties,
// Position is not.
type LeaderboardEntry struct {
	User     commonDto.UserSummary `json:"user"`
	Value    float64               `json:"value"`
	Rank     int                   `json:"rank"`
	Position int                   `json:"position"`
	Level    commonDto.RunnerLevel `json:"level"`
}

type LeaderboardResponse struct {
	Metric    string             `json:"metric"`
	Timeframe string             `json:"timeframe"`
	Entries   []LeaderboardEntry `json:"entries"`
}
