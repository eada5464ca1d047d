package capture

import (
	"time"

	"github.com/google/uuid"
)

// CameraState tracks the camera device independently of the on/off toggle
type CameraState string

const (
	CameraOff       CameraState = "off"
	CameraAcquiring CameraState = "acquiring"
	CameraLive      CameraState = "live"
	CameraFailed    CameraState = "failed"
)

// NotStarted is displayed as elapsed time before monitoring began
const NotStarted = "N/A"

// Capture is one still frame taken by the capture loop. It is never modified after creation.
type Capture struct {
	ID        uuid.UUID
	Image     []byte // PNG
	Timestamp time.Time
}

// CaptureInfo describes a capture without its image data
type CaptureInfo struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
}

// session is the mutable per-screen record. It is owned by the controller's loop goroutine.
type session struct {
	cameraOn    bool
	cameraState CameraState
	cameraErr   error
	startTime   *time.Time
	captures    []Capture
	score       *int
	evaluating  bool
}

func (s *session) captureCount() int {
	return len(s.captures)
}

// Snapshot is a read-only projection of the session
type Snapshot struct {
	CameraOn        bool        `json:"cameraOn"`
	CameraState     CameraState `json:"cameraState"`
	CameraError     string      `json:"cameraError,omitempty"`
	CaptureCount    int         `json:"captureCount"`
	Quota           int         `json:"quota"`
	IntervalSeconds int         `json:"intervalSeconds"`
	StartTime       *time.Time  `json:"startTime,omitempty"`
	Elapsed         string      `json:"elapsed"`
	Score           *int        `json:"score,omitempty"`
	Evaluating      bool        `json:"evaluating"`
}

// Complete reports whether the capture quota has been reached
func (s Snapshot) Complete() bool {
	return s.CaptureCount >= s.Quota
}

func (s *session) snapshot(cfg Config, now time.Time) Snapshot {
	snap := Snapshot{
		CameraOn:        s.cameraOn,
		CameraState:     s.cameraState,
		CaptureCount:    s.captureCount(),
		Quota:           cfg.Quota,
		IntervalSeconds: int(cfg.Interval / time.Second),
		Elapsed:         FormatElapsed(s.startTime, now),
		Evaluating:      s.evaluating,
	}
	if s.cameraErr != nil {
		snap.CameraError = s.cameraErr.Error()
	}
	if s.startTime != nil {
		start := *s.startTime
		snap.StartTime = &start
	}
	if s.score != nil {
		score := *s.score
		snap.Score = &score
	}
	return snap
}

func (s *session) captureInfos() []CaptureInfo {
	infos := make([]CaptureInfo, 0, len(s.captures))
	for i, c := range s.captures {
		infos = append(infos, CaptureInfo{
			Index:     i,
			ID:        c.ID.String(),
			Timestamp: c.Timestamp,
			Size:      len(c.Image),
		})
	}
	return infos
}
