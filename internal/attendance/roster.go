package attendance

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used for attendance days
const DateLayout = "2006-01-02"

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidStatus   = errors.New("invalid attendance status")
	ErrInvalidDate     = errors.New("invalid attendance date")
	ErrDuplicateID     = errors.New("duplicate student id")
)

type Status string

const (
	Unset   Status = ""
	Present Status = "Present"
	Absent  Status = "Absent"
)

// ParseStatus accepts the empty string to clear a status
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case Unset, Present, Absent:
		return s, nil
	default:
		return Unset, fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
}

type Student struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Status Status `json:"status" yaml:"-"`
}

// AttendanceRecord is a student's status frozen at submission time
type AttendanceRecord struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

type AttendanceLog struct {
	ID      uuid.UUID          `json:"id"`
	Date    string             `json:"date"`
	Records []AttendanceRecord `json:"records"`
}

// DefaultStudents is the class roster used when none is configured
func DefaultStudents() []Student {
	return []Student{
		{ID: 1, Name: "Sabari"},
		{ID: 2, Name: "Niranjan"},
		{ID: 3, Name: "Tharaneswaran"},
	}
}

// Roster holds the day's attendance statuses and the submitted history.
// It is kept in memory only.
type Roster struct {
	mu       sync.Mutex
	students []Student
	date     string
	history  []AttendanceLog
	now      func() time.Time
}

// NewRoster starts a roster with every status unset and today's date selected
func NewRoster(students []Student) (*Roster, error) {
	seen := make(map[int]bool, len(students))
	roster := make([]Student, 0, len(students))
	for _, s := range students {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
		roster = append(roster, Student{ID: s.ID, Name: s.Name})
	}

	r := &Roster{students: roster, now: time.Now}
	r.date = r.today()
	return r, nil
}

func (r *Roster) today() string {
	return r.now().Format(DateLayout)
}

// SetStatus marks one student for the current day
func (r *Roster) SetStatus(studentID int, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.students, func(s Student) bool { return s.ID == studentID })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrStudentNotFound, studentID)
	}
	r.students[i].Status = status
	return nil
}

// SetDate selects the day the next submission is recorded for
func (r *Roster) SetDate(date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.date = date
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// SubmitDay appends the current statuses as a log for date and resets every
// status to unset. An empty date uses the selected date. Students without a
// status are recorded as such.
func (r *Roster) SubmitDay(date string) (AttendanceLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if date == "" {
		date = r.date
	}
	if err := validateDate(date); err != nil {
		return AttendanceLog{}, err
	}

	entry := AttendanceLog{
		ID:      uuid.New(),
		Date:    date,
		Records: make([]AttendanceRecord, 0, len(r.students)),
	}
	for i, s := range r.students {
		entry.Records = append(entry.Records, AttendanceRecord{ID: s.ID, Name: s.Name, Status: s.Status})
		r.students[i].Status = Unset
	}
	r.history = append(r.history, entry)

	slog.Info("attendance submitted", "date", date, "students", len(entry.Records))
	return cloneLog(entry), nil
}

// Students returns the roster with the current statuses
func (r *Roster) Students() []Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.students)
}

// Date returns the selected day
func (r *Roster) Date() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.date
}

// History returns the submitted logs, oldest first
func (r *Roster) History() []AttendanceLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]AttendanceLog, 0, len(r.history))
	for _, entry := range r.history {
		history = append(history, cloneLog(entry))
	}
	return history
}

func cloneLog(entry AttendanceLog) AttendanceLog {
	entry.Records = slices.Clone(entry.Records)
	return entry
}
