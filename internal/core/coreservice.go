package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jo-hoe/classwatch/internal/attendance"
	"github.com/jo-hoe/classwatch/internal/auth"
	"github.com/jo-hoe/classwatch/internal/badge"
	"github.com/jo-hoe/classwatch/internal/capture"
	"github.com/jo-hoe/classwatch/internal/capture/device"
	"github.com/jo-hoe/classwatch/internal/facedetect"
	"github.com/jo-hoe/classwatch/internal/metrics"
	"github.com/jo-hoe/classwatch/internal/tokenstore"
)

const badgeScale = 2

// CoreService owns the three screens: capture session, attendance roster and login form
type CoreService struct {
	config  *ServiceConfig
	metrics *metrics.Metrics
	tokens  tokenstore.Store
	roster  *attendance.Roster
	login   *auth.LoginForm

	captureMu sync.RWMutex
	capture   *capture.Controller
	// newCamera and newDetector build fresh devices for every mounted capture session
	newCamera   func() (device.Camera, error)
	newDetector func() (facedetect.Detector, error)
	options     []capture.Option
}

func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	m := metrics.New()
	newCamera := func() (device.Camera, error) {
		return device.New(config.Camera.Name, config.Camera.Params)
	}
	newDetector := func() (facedetect.Detector, error) {
		return facedetect.New(config.Detector.Name, config.Detector.Params)
	}
	return newCoreService(config, m, newCamera, newDetector, capture.WithMetrics(m))
}

func newCoreService(
	config *ServiceConfig,
	m *metrics.Metrics,
	newCamera func() (device.Camera, error),
	newDetector func() (facedetect.Detector, error),
	options ...capture.Option,
) (*CoreService, error) {
	tokens, err := tokenstore.New(config.TokenStore.Type, config.TokenStore.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}
	roster, err := attendance.NewRoster(config.Roster.Students)
	if err != nil {
		_ = tokens.Close()
		return nil, fmt.Errorf("failed to initialize roster: %w", err)
	}
	client := auth.NewClient(config.Auth.Endpoint, time.Duration(config.Auth.TimeoutSeconds)*time.Second)

	service := &CoreService{
		config:      config,
		metrics:     m,
		tokens:      tokens,
		roster:      roster,
		login:       auth.NewLoginForm(client, tokens, m),
		newCamera:   newCamera,
		newDetector: newDetector,
		options:     options,
	}
	if service.capture, err = service.mountCapture(); err != nil {
		_ = tokens.Close()
		return nil, err
	}

	slog.Info("core service initialized",
		"camera", config.Camera.Name,
		"detector", config.Detector.Name,
		"token_store", config.TokenStore.Type,
		"students", len(config.Roster.Students))
	return service, nil
}

func (service *CoreService) mountCapture() (*capture.Controller, error) {
	camera, err := service.newCamera()
	if err != nil {
		return nil, fmt.Errorf("failed to create camera: %w", err)
	}
	detector, err := service.newDetector()
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	controller, err := capture.NewController(service.config.CaptureSettings(), camera, detector, service.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to mount capture session: %w", err)
	}
	return controller, nil
}

func (service *CoreService) controller() *capture.Controller {
	service.captureMu.RLock()
	defer service.captureMu.RUnlock()
	return service.capture
}

func (service *CoreService) MetricsHandler() http.Handler {
	return service.metrics.Handler()
}

// Capture session

func (service *CoreService) CaptureSnapshot(ctx context.Context) (capture.Snapshot, error) {
	return service.controller().Snapshot(ctx)
}

func (service *CoreService) SetCameraEnabled(ctx context.Context, enabled bool) error {
	return service.controller().SetCameraEnabled(ctx, enabled)
}

func (service *CoreService) Captures(ctx context.Context) ([]capture.CaptureInfo, error) {
	return service.controller().Captures(ctx)
}

func (service *CoreService) Capture(ctx context.Context, index int) (capture.Capture, error) {
	return service.controller().Capture(ctx, index)
}

func (service *CoreService) Evaluate(ctx context.Context) (int, error) {
	return service.controller().Evaluate(ctx)
}

// ScoreBadge renders the current score as a row of stars, one per capture of the quota
func (service *CoreService) ScoreBadge(ctx context.Context) ([]byte, error) {
	snap, err := service.CaptureSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	score := 0
	if snap.Score != nil {
		score = *snap.Score
	}
	return badge.PNG(score, snap.Quota, badgeScale)
}

// ReloadCapture tears the capture session down and mounts a fresh one.
// This is the only way the session start time is reset.
func (service *CoreService) ReloadCapture() error {
	service.captureMu.Lock()
	defer service.captureMu.Unlock()

	controller, err := service.mountCapture()
	if err != nil {
		return err
	}
	if err := service.capture.Close(); err != nil {
		slog.Error("failed to close capture session", "error", err)
	}
	service.capture = controller
	slog.Info("capture session reloaded")
	return nil
}

// Attendance

func (service *CoreService) Students() []attendance.Student {
	return service.roster.Students()
}

func (service *CoreService) SetAttendanceStatus(studentID int, status attendance.Status) error {
	return service.roster.SetStatus(studentID, status)
}

func (service *CoreService) AttendanceDate() string {
	return service.roster.Date()
}

func (service *CoreService) SetAttendanceDate(date string) error {
	return service.roster.SetDate(date)
}

func (service *CoreService) SubmitAttendance(date string) (attendance.AttendanceLog, error) {
	return service.roster.SubmitDay(date)
}

func (service *CoreService) AttendanceHistory() []attendance.AttendanceLog {
	return service.roster.History()
}

// Login

func (service *CoreService) Login(ctx context.Context, email, password string) error {
	return service.login.Submit(ctx, email, password)
}

func (service *CoreService) Logout(ctx context.Context) error {
	return service.login.Logout(ctx)
}

func (service *CoreService) LoginState() auth.State {
	return service.login.State()
}

// Close tears down the capture session and closes the token store
func (service *CoreService) Close() error {
	return errors.Join(service.controller().Close(), service.tokens.Close())
}
