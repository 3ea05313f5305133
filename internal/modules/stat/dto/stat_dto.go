package dto

type CommunityStats struct {
	TotalUsers         int64   `json:"totalUsers"`
	TotalRuns          int64   `json:"totalRuns"`
	TotalDistance      float64 `json:"totalDistance"`
	TotalDuration      float64 `json:"totalDuration"`
	TotalElevationGain float64 `json:"totalElevationGain"`
	ActiveChallenges   int64   `json:"activeChallenges"`
	PublicRoutes       int64   `json:"publicRoutes"`
}
