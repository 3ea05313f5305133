package service

import (
	"math"

	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

const MaxLevel = "Max Level"

// Level thresholds in km of all-time distance. Levels never demote.
var levels = []struct {
	name string
	km   float64
}{
	{"Newcomer", 0},
	{"Jogger", 25},
	{"Runner", 100},
	{"Racer", 500},
	{"Marathoner", 1500},
	{"Ultra", 5000},
}

// Weekly activity thresholds in km over the last 7 days.
const (
	WeeklyOnFire   = 50
	WeeklyTrending = 25
	WeeklyActive   = 10
)

// LevelFor returns the level for an all-time distance alone.
func LevelFor(totalKm float64) commonDto.RunnerLevel {
	return LevelWithWeekly(totalKm, 0)
}

// LevelWithWeekly combines the all-time level with the weekly activity label.
func LevelWithWeekly(totalKm, weeklyKm float64) commonDto.RunnerLevel {
	level := commonDto.RunnerLevel{
		TotalDistance:  totalKm,
		WeeklyDistance: weeklyKm,
	}

	i := len(levels) - 1
	for i > 0 && totalKm < levels[i].km {
		i--
	}
	level.Name = levels[i].name

	if i == len(levels)-1 {
		level.NextLevel = MaxLevel
		level.TargetDistance = levels[i].km
		level.Progress = 100
	} else {
		next := levels[i+1]
		level.NextLevel = next.name
		level.TargetDistance = next.km
		level.Progress = totalKm / next.km * 100
	}
	level.Progress = math.Round(level.Progress*100) / 100

	switch {
	case weeklyKm >= WeeklyOnFire:
		level.WeeklyLabel = "On Fire"
	case weeklyKm >= WeeklyTrending:
		level.WeeklyLabel = "Trending"
	case weeklyKm >= WeeklyActive:
		level.WeeklyLabel = "Active"
	}

	return level
}
