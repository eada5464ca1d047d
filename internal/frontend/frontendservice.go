package frontend

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/classwatch/internal/attendance"
	"github.com/jo-hoe/classwatch/internal/auth"
	"github.com/jo-hoe/classwatch/internal/badge"
	"github.com/jo-hoe/classwatch/internal/capture"
	"github.com/jo-hoe/classwatch/internal/core"
)

const (
	MainPageName = "index.html"
	pageTitle    = "Classroom Monitoring"
	timeLayout   = "15:04:05"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexData struct {
	Title          string
	RefreshSeconds int
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/icon.svg", service.iconHandler)

	e.GET("/htmx/capture", service.htmxCaptureHandler)
	e.POST("/htmx/capture/camera", service.htmxToggleCameraHandler)
	e.POST("/htmx/capture/evaluate", service.htmxEvaluateHandler)
	e.POST("/htmx/capture/reload", service.htmxReloadHandler)

	e.GET("/htmx/attendance", service.htmxAttendanceHandler)
	e.POST("/htmx/attendance/students/:id", service.htmxSetStatusHandler)
	e.POST("/htmx/attendance/date", service.htmxSetDateHandler)
	e.POST("/htmx/attendance/submit", service.htmxSubmitAttendanceHandler)

	e.GET("/htmx/login", service.htmxLoginHandler)
	e.POST("/htmx/login", service.htmxSubmitLoginHandler)
	e.POST("/htmx/logout", service.htmxLogoutHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, indexData{Title: pageTitle, RefreshSeconds: 1})
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", []byte(badge.SVG(1, 1)))
}

// capture panel

func (service *FrontendService) htmxCaptureHandler(ctx echo.Context) error {
	return service.renderCapturePanel(ctx, "")
}

func (service *FrontendService) htmxToggleCameraHandler(ctx echo.Context) error {
	enabled, err := strconv.ParseBool(ctx.FormValue("enabled"))
	if err != nil {
		slog.Warn("htmxToggleCameraHandler: invalid enabled flag", "value", ctx.FormValue("enabled"))
		return ctx.String(http.StatusBadRequest, "Invalid camera state")
	}
	if err := service.coreService.SetCameraEnabled(ctx.Request().Context(), enabled); err != nil {
		slog.Error("htmxToggleCameraHandler: failed to toggle camera", "enabled", enabled, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to toggle camera")
	}
	return service.renderCapturePanel(ctx, "")
}

func (service *FrontendService) htmxEvaluateHandler(ctx echo.Context) error {
	notice := ""
	_, err := service.coreService.Evaluate(ctx.Request().Context())
	switch {
	case errors.Is(err, capture.ErrQuotaNotReached):
		notice = "Not all photos have been captured yet."
	case errors.Is(err, capture.ErrEvaluationInProgress):
		notice = "An evaluation is already running."
	case err != nil:
		slog.Error("htmxEvaluateHandler: evaluation failed", "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to evaluate attentiveness")
	}
	return service.renderCapturePanel(ctx, notice)
}

func (service *FrontendService) htmxReloadHandler(ctx echo.Context) error {
	if err := service.coreService.ReloadCapture(); err != nil {
		slog.Error("htmxReloadHandler: failed to reload capture session", "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to reload capture session")
	}
	return service.renderCapturePanel(ctx, "")
}

func (service *FrontendService) renderCapturePanel(ctx echo.Context, notice string) error {
	panel, err := service.buildCapturePanelHTML(ctx.Request().Context(), notice)
	if err != nil {
		slog.Error("renderCapturePanel: failed to read capture session", "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read capture session")
	}
	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, panel)
}

func (service *FrontendService) buildCapturePanelHTML(ctx context.Context, notice string) (string, error) {
	snap, err := service.coreService.CaptureSnapshot(ctx)
	if err != nil {
		return "", err
	}
	captures, err := service.coreService.Captures(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	toggleLabel, toggleValue := "Turn On Camera", "true"
	if snap.CameraOn {
		toggleLabel, toggleValue = "Turn Off Camera", "false"
	}
	fmt.Fprintf(&b, `<h2>Monitoring</h2>
<div style="display:flex;gap:0.5rem">
	<button hx-post="/htmx/capture/camera" hx-vals='{"enabled":"%s"}' hx-target="#capture-panel">%s</button>
	<button hx-post="/htmx/capture/reload" hx-target="#capture-panel" class="secondary">Reload</button>
</div>`, toggleValue, toggleLabel)

	if snap.CameraState == capture.CameraFailed {
		fmt.Fprintf(&b, `<p role="alert">Error accessing the camera: %s</p>`, html.EscapeString(snap.CameraError))
	} else if snap.CameraOn {
		fmt.Fprintf(&b, `<p>Monitoring... Capturing every %d seconds.</p>`, snap.IntervalSeconds)
	}
	fmt.Fprintf(&b, `<p>Elapsed Time: %s</p>`, html.EscapeString(snap.Elapsed))

	fmt.Fprintf(&b, `<h3>Captured Photos (%d/%d):</h3>`, snap.CaptureCount, snap.Quota)
	for _, info := range captures {
		fmt.Fprintf(&b, `<article>
	<h4>Photo %d - Captured at: %s</h4>
	<img src="/api/capture/images/%d" alt="Captured %d" width="300">
</article>`, info.Index+1, formatCaptureTime(info.Timestamp), info.Index, info.Index+1)
	}

	if snap.Complete() {
		b.WriteString(`<p>Monitoring complete! All photos have been captured.</p>`)
		if snap.Evaluating {
			b.WriteString(`<button disabled>Evaluating...</button>`)
		} else {
			b.WriteString(`<button hx-post="/htmx/capture/evaluate" hx-target="#capture-panel" hx-disabled-elt="this">Evaluate Attentiveness</button>`)
		}
		if snap.Score != nil && !snap.Evaluating {
			fmt.Fprintf(&b, `<h3>Attentiveness Score: %d / %d</h3>
<div>%s</div>`, *snap.Score, snap.Quota, badge.SVG(*snap.Score, snap.Quota))
		}
	}
	if notice != "" {
		fmt.Fprintf(&b, `<p role="alert">%s</p>`, html.EscapeString(notice))
	}
	return b.String(), nil
}

// attendance panel

func (service *FrontendService) htmxAttendanceHandler(ctx echo.Context) error {
	return service.renderAttendancePanel(ctx, "")
}

func (service *FrontendService) htmxSetStatusHandler(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		slog.Warn("htmxSetStatusHandler: invalid student id", "id", ctx.Param("id"))
		return ctx.String(http.StatusBadRequest, "Invalid student ID")
	}
	status, err := attendance.ParseStatus(ctx.FormValue("status"))
	if err != nil {
		slog.Warn("htmxSetStatusHandler: invalid status", "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid status")
	}
	if err := service.coreService.SetAttendanceStatus(id, status); err != nil {
		slog.Warn("htmxSetStatusHandler: failed to set status", "id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Student not found")
	}
	return service.renderAttendancePanel(ctx, "")
}

func (service *FrontendService) htmxSetDateHandler(ctx echo.Context) error {
	if err := service.coreService.SetAttendanceDate(ctx.FormValue("date")); err != nil {
		return service.renderAttendancePanel(ctx, "Please pick a valid date.")
	}
	return service.renderAttendancePanel(ctx, "")
}

func (service *FrontendService) htmxSubmitAttendanceHandler(ctx echo.Context) error {
	if _, err := service.coreService.SubmitAttendance(ctx.FormValue("date")); err != nil {
		slog.Warn("htmxSubmitAttendanceHandler: failed to submit attendance", "error", err)
		return service.renderAttendancePanel(ctx, "Please pick a valid date.")
	}
	return service.renderAttendancePanel(ctx, "")
}

func (service *FrontendService) renderAttendancePanel(ctx echo.Context, notice string) error {
	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.buildAttendancePanelHTML(notice))
}

func (service *FrontendService) buildAttendancePanelHTML(notice string) string {
	var b strings.Builder
	b.WriteString(`<h2>Attendance Management</h2>`)
	fmt.Fprintf(&b, `<form hx-post="/htmx/attendance/submit" hx-target="#attendance-panel">
	<label>Date:
		<input type="date" name="date" value="%s" hx-post="/htmx/attendance/date" hx-trigger="change" hx-target="#attendance-panel">
	</label>
	<table>
		<thead><tr><th>Student Name</th><th>Status</th></tr></thead>
		<tbody>`, html.EscapeString(service.coreService.AttendanceDate()))

	for _, student := range service.coreService.Students() {
		fmt.Fprintf(&b, `
		<tr>
			<td>%s</td>
			<td><select name="status" hx-post="/htmx/attendance/students/%d" hx-trigger="change" hx-target="#attendance-panel">%s</select></td>
		</tr>`, html.EscapeString(student.Name), student.ID, statusOptions(student.Status))
	}
	b.WriteString(`
		</tbody>
	</table>
	<button type="submit">Submit Attendance</button>
</form>`)
	if notice != "" {
		fmt.Fprintf(&b, `<p role="alert">%s</p>`, html.EscapeString(notice))
	}

	b.WriteString(`<h3>Attendance Records</h3>`)
	history := service.coreService.AttendanceHistory()
	if len(history) == 0 {
		b.WriteString(`<p>No records yet.</p>`)
		return b.String()
	}
	for _, entry := range history {
		fmt.Fprintf(&b, `<article>
	<h4>Date: %s</h4>
	<table>
		<thead><tr><th>Student</th><th>Status</th></tr></thead>
		<tbody>`, html.EscapeString(entry.Date))
		for _, record := range entry.Records {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td></tr>`,
				html.EscapeString(record.Name), html.EscapeString(string(record.Status)))
		}
		b.WriteString(`</tbody>
	</table>
</article>`)
	}
	return b.String()
}

func statusOptions(current attendance.Status) string {
	options := []struct {
		value attendance.Status
		label string
	}{
		{attendance.Unset, "Select"},
		{attendance.Present, "Present"},
		{attendance.Absent, "Absent"},
	}
	var b strings.Builder
	for _, option := range options {
		selected := ""
		if option.value == current {
			selected = " selected"
		}
		fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, option.value, selected, option.label)
	}
	return b.String()
}

// login panel

func (service *FrontendService) htmxLoginHandler(ctx echo.Context) error {
	return service.renderLoginPanel(ctx)
}

func (service *FrontendService) htmxSubmitLoginHandler(ctx echo.Context) error {
	// failures are shown through the form message
	_ = service.coreService.Login(ctx.Request().Context(), ctx.FormValue("email"), ctx.FormValue("password"))
	return service.renderLoginPanel(ctx)
}

func (service *FrontendService) htmxLogoutHandler(ctx echo.Context) error {
	if err := service.coreService.Logout(ctx.Request().Context()); err != nil {
		slog.Error("htmxLogoutHandler: failed to log out", "error", err)
	}
	return service.renderLoginPanel(ctx)
}

func (service *FrontendService) renderLoginPanel(ctx echo.Context) error {
	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, buildLoginPanelHTML(service.coreService.LoginState()))
}

func buildLoginPanelHTML(state auth.State) string {
	var b strings.Builder
	if state.Authenticated {
		b.WriteString(`<h2>Welcome</h2>
<p>You are now logged in.</p>
<button hx-post="/htmx/logout" hx-target="#login-panel" class="contrast">Logout</button>`)
	} else {
		fmt.Fprintf(&b, `<h2>Login</h2>
<form hx-post="/htmx/login" hx-target="#login-panel">
	<label>Email <input type="email" name="email" value="%s" required></label>
	<label>Password <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>`, html.EscapeString(state.Email))
	}
	if state.Message != "" {
		fmt.Fprintf(&b, `<p><small>%s</small></p>`, html.EscapeString(state.Message))
	}
	return b.String()
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func formatCaptureTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}
