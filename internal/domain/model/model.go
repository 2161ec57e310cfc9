// Package model contains domain values passed between pipeline stages.
package model

import "time"

// Source identifies the detection algorithm that produced a Detection.
type Source string

// Known detection sources.
const (
	SourceBlob    Source = "blob"
	SourceContour Source = "contour"
	SourceHough   Source = "hough"
)

// Sources lists every detection source in a stable order.
func Sources() []Source {
	return []Source{SourceBlob, SourceContour, SourceHough}
}

// Detection is one candidate circular feature reported by a single
// detector for one frame. It is immutable and discarded after merge.
type Detection struct {
	X          float64
	Y          float64
	Radius     float64
	Confidence float64 // in [0,1]
	Source     Source
}

// MergedDetection is a deduplicated, confidence-combined candidate
// produced by the merge engine. SupportCount is the number of distinct
// sources that agreed on it.
type MergedDetection struct {
	X            float64
	Y            float64
	Radius       float64
	Confidence   float64 // in [0,1]
	SupportCount int     // >= 1
}

// PatternLabel classifies a frame's detection layout.
type PatternLabel string

// Pattern labels, ordered from no activity to heaviest.
const (
	PatternEmpty     PatternLabel = "EMPTY"
	PatternIsolated  PatternLabel = "ISOLATED"
	PatternSparse    PatternLabel = "SPARSE"
	PatternScattered PatternLabel = "SCATTERED"
	PatternClustered PatternLabel = "CLUSTERED"
	PatternDense     PatternLabel = "DENSE"
	PatternStorm     PatternLabel = "STORM"
)

// FrameMetrics captures the aggregate statistics derived from one
// frame's merged detections. One per frame; history is retained only
// for the current round.
type FrameMetrics struct {
	FrameIndex      int
	TimestampMs     int64
	PerSourceCounts map[Source]int
	MergedCount     int
	AvgRadius       float64
	ClusteringIndex float64 // in [0,1]
	Entropy         float64 // in [0,1]
	PatternLabel    PatternLabel
}

// ClickEvent is a player input in frame coordinate space. External,
// immutable, consumed once.
type ClickEvent struct {
	X           float64
	Y           float64
	TimestampMs int64
}

// Difficulty is the opponent strength level.
type Difficulty string

// The three discrete difficulty levels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Promote returns the next harder difficulty, saturating at hard.
func (d Difficulty) Promote() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	default:
		return DifficultyHard
	}
}

// Demote returns the next easier difficulty, saturating at easy.
func (d Difficulty) Demote() Difficulty {
	switch d {
	case DifficultyHard:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyEasy
	default:
		return DifficultyEasy
	}
}

// Level returns a numeric rank for the difficulty, for gauges.
func (d Difficulty) Level() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

// RoundRecord is the final payload handed to the persistence
// collaborator when a round ends. The core never computes the username
// hash or performs storage; it only fills the record.
type RoundRecord struct {
	UsernameHash   string
	Points         int
	AIScore        float64
	HumanScore     float64
	Collaborations int
	Timestamp      time.Time
	DeviceType     string
}
