package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/classwatch/internal/attendance"
	"github.com/jo-hoe/classwatch/internal/auth"
	"github.com/jo-hoe/classwatch/internal/capture"
	"github.com/jo-hoe/classwatch/internal/core"
)

const mimePNG = "image/png"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type CameraRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=Present Absent"`
}

type DateRequest struct {
	Date string `json:"date" validate:"required"`
}

type SubmitRequest struct {
	Date string `json:"date"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ScoreResponse struct {
	Score int `json:"score"`
}

type AttendanceResponse struct {
	Date     string               `json:"date"`
	Students []attendance.Student `json:"students"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)
	e.GET("/metrics", echo.WrapHandler(s.coreService.MetricsHandler()))

	e.GET("/api/capture", s.captureSnapshotHandler)
	e.POST("/api/capture/camera", s.setCameraHandler)
	e.GET("/api/capture/images", s.listCapturesHandler)
	e.GET("/api/capture/images/:index", s.getCaptureHandler)
	e.POST("/api/capture/evaluate", s.evaluateHandler)
	e.GET("/api/capture/score.png", s.scoreBadgeHandler)
	e.POST("/api/capture/reload", s.reloadCaptureHandler)

	e.GET("/api/attendance", s.attendanceHandler)
	e.PUT("/api/attendance/students/:id", s.setStatusHandler)
	e.PUT("/api/attendance/date", s.setDateHandler)
	e.POST("/api/attendance/submit", s.submitAttendanceHandler)
	e.GET("/api/attendance/logs", s.attendanceLogsHandler)

	e.GET("/api/login", s.loginStateHandler)
	e.POST("/api/login", s.loginHandler)
	e.POST("/api/logout", s.logoutHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API Service is running")
}

func (s *APIService) captureSnapshotHandler(ctx echo.Context) error {
	snap, err := s.coreService.CaptureSnapshot(ctx.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (s *APIService) setCameraHandler(ctx echo.Context) error {
	var req CameraRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	if err := s.coreService.SetCameraEnabled(ctx.Request().Context(), *req.Enabled); err != nil {
		return toHTTPError(err)
	}
	return s.captureSnapshotHandler(ctx)
}

func (s *APIService) listCapturesHandler(ctx echo.Context) error {
	infos, err := s.coreService.Captures(ctx.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (s *APIService) getCaptureHandler(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "capture index must be a number")
	}
	c, err := s.coreService.Capture(ctx.Request().Context(), index)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Blob(http.StatusOK, mimePNG, c.Image)
}

func (s *APIService) evaluateHandler(ctx echo.Context) error {
	score, err := s.coreService.Evaluate(ctx.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, ScoreResponse{Score: score})
}

func (s *APIService) scoreBadgeHandler(ctx echo.Context) error {
	data, err := s.coreService.ScoreBadge(ctx.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (s *APIService) reloadCaptureHandler(ctx echo.Context) error {
	if err := s.coreService.ReloadCapture(); err != nil {
		return toHTTPError(err)
	}
	return s.captureSnapshotHandler(ctx)
}

func (s *APIService) attendanceHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, AttendanceResponse{
		Date:     s.coreService.AttendanceDate(),
		Students: s.coreService.Students(),
	})
}

func (s *APIService) setStatusHandler(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "student id must be a number")
	}
	var req StatusRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	if err := s.coreService.SetAttendanceStatus(id, attendance.Status(req.Status)); err != nil {
		return toHTTPError(err)
	}
	return s.attendanceHandler(ctx)
}

func (s *APIService) setDateHandler(ctx echo.Context) error {
	var req DateRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	if err := s.coreService.SetAttendanceDate(req.Date); err != nil {
		return toHTTPError(err)
	}
	return s.attendanceHandler(ctx)
}

func (s *APIService) submitAttendanceHandler(ctx echo.Context) error {
	var req SubmitRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	entry, err := s.coreService.SubmitAttendance(req.Date)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (s *APIService) attendanceLogsHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.coreService.AttendanceHistory())
}

func (s *APIService) loginStateHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.coreService.LoginState())
}

func (s *APIService) loginHandler(ctx echo.Context) error {
	var req LoginRequest
	// invalid input is reported by the login form itself
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "received invalid request body")
	}
	if err := s.coreService.Login(ctx.Request().Context(), req.Email, req.Password); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, s.coreService.LoginState())
}

func (s *APIService) logoutHandler(ctx echo.Context) error {
	if err := s.coreService.Logout(ctx.Request().Context()); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, s.coreService.LoginState())
}

func bindAndValidate(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "received invalid request body")
	}
	return ctx.Validate(req)
}

// toHTTPError maps domain errors onto status codes; unknown errors become 500
func toHTTPError(err error) error {
	var status int
	switch {
	case errors.Is(err, attendance.ErrStudentNotFound),
		errors.Is(err, capture.ErrCaptureNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, auth.ErrInvalidForm):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrQuotaNotReached),
		errors.Is(err, capture.ErrEvaluationInProgress):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, capture.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		slog.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}
