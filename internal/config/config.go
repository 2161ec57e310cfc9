// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and env vars.
// - Out-of-range values clamp to the nearest valid bound at load time;
//   malformed configuration is never fatal and never propagates NaN
//   into geometry math.
package config

// Config contains process configuration for the detection pipeline and
// the scoring round.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the metrics/health listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// FramesDir points at an ordered image sequence to analyze. When
	// empty the synthetic rain source is used instead.
	FramesDir string `koanf:"frames_dir"`

	// FrameWidth and FrameHeight size the synthetic source's frames.
	FrameWidth  int `koanf:"frame_width"`
	FrameHeight int `koanf:"frame_height"`

	// TickIntervalMS drives the processing cadence (frame budget).
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// Sensitivity is the brightness threshold (0-1) shared by the blob
	// and Hough detectors.
	Sensitivity float64 `koanf:"sensitivity"`

	// BlurRadius is the Gaussian pre-blur applied during frame
	// conversion. Zero disables blurring.
	BlurRadius float64 `koanf:"blur_radius"`

	// GradientThreshold is the edge-magnitude cutoff (0-1) for the
	// contour detector.
	GradientThreshold float64 `koanf:"gradient_threshold"`

	// MinClusterSize filters sparse or noisy pixel clusters before a
	// detection is emitted.
	MinClusterSize int `koanf:"min_cluster_size"`

	// MinArea and MaxArea bound accepted blob cluster sizes in pixels.
	MinArea int `koanf:"min_area"`
	MaxArea int `koanf:"max_area"`

	// MaxClusterRadius caps flood-fill growth from a cluster seed.
	MaxClusterRadius float64 `koanf:"max_cluster_radius"`

	// HoughRadii is the fixed candidate radius set for circle voting.
	HoughRadii []int `koanf:"hough_radii"`

	// HoughVoteThreshold is the fraction of circumference points that
	// must vote for a center (0-1).
	HoughVoteThreshold float64 `koanf:"hough_vote_threshold"`

	// DetectorTimeoutMS bounds each detector's per-frame run.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms"`

	// HueGateEnabled masks pixels outside [HueMin, HueMax] degrees
	// during conversion, for footage with tinted drops.
	HueGateEnabled bool    `koanf:"hue_gate_enabled"`
	HueMin         float64 `koanf:"hue_min"`
	HueMax         float64 `koanf:"hue_max"`

	// MergeRadius is the center distance (frame units) within which
	// detections collapse into one merged detection.
	MergeRadius float64 `koanf:"merge_radius"`

	// BucketCols and BucketRows size the coarse grid used for the
	// entropy calculation.
	BucketCols int `koanf:"bucket_cols"`
	BucketRows int `koanf:"bucket_rows"`

	// Pattern label count bands: a merged count below each bound maps
	// to the corresponding label.
	IsolatedMax  int `koanf:"isolated_max"`
	SparseMax    int `koanf:"sparse_max"`
	ScatteredMax int `koanf:"scattered_max"`
	ClusteredMax int `koanf:"clustered_max"`
	DenseMax     int `koanf:"dense_max"`

	// HighClustering and LowClustering split high-count frames between
	// clustered and scattered labels.
	HighClustering float64 `koanf:"high_clustering"`
	LowClustering  float64 `koanf:"low_clustering"`

	// RoundDurationSec is the length of one scoring round.
	RoundDurationSec int `koanf:"round_duration_sec"`

	// MatchWindowMS is how far a click timestamp may lag the frame it
	// is matched against.
	MatchWindowMS int `koanf:"match_window_ms"`

	// ClickQueueSize bounds the click intake queue.
	ClickQueueSize int `koanf:"click_queue_size"`

	// Difficulty is the starting opponent level: easy, medium, hard.
	Difficulty string `koanf:"difficulty"`

	// PromoteThreshold and DemoteThreshold adapt difficulty between
	// rounds based on accumulated human accuracy.
	PromoteThreshold float64 `koanf:"promote_threshold"`
	DemoteThreshold  float64 `koanf:"demote_threshold"`

	// AIRates maps difficulty to the fraction of merged detections the
	// simulated opponent samples each tick.
	AIRates map[string]float64 `koanf:"ai_rates"`

	// UsernameHash and DeviceType are passed through to the round
	// record; the pipeline never computes the hash itself.
	UsernameHash string `koanf:"username_hash"`
	DeviceType   string `koanf:"device_type"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9090",
		FramesDir:          "",
		FrameWidth:         640,
		FrameHeight:        480,
		TickIntervalMS:     33,
		Sensitivity:        0.5,
		BlurRadius:         2.0,
		GradientThreshold:  0.12,
		MinClusterSize:     12,
		MinArea:            20,
		MaxArea:            5000,
		MaxClusterRadius:   48,
		HoughRadii:         []int{6, 10, 14, 18, 24},
		HoughVoteThreshold: 0.6,
		DetectorTimeoutMS:  50,
		HueGateEnabled:     false,
		HueMin:             200,
		HueMax:             260,
		MergeRadius:        30,
		BucketCols:         8,
		BucketRows:         6,
		IsolatedMax:        3,
		SparseMax:          10,
		ScatteredMax:       25,
		ClusteredMax:       50,
		DenseMax:           100,
		HighClustering:     0.6,
		LowClustering:      0.25,
		RoundDurationSec:   30,
		MatchWindowMS:      500,
		ClickQueueSize:     256,
		Difficulty:         "medium",
		PromoteThreshold:   0.75,
		DemoteThreshold:    0.40,
		AIRates: map[string]float64{
			"easy":   0.45,
			"medium": 0.75,
			"hard":   0.95,
		},
		UsernameHash: "anonymous",
		DeviceType:   "desktop",
	}
}
