package service

import (
	"context"
	"fmt"
	"time"

	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
)

type instructorScheduleReader interface {
	ListByInstructorBetween(ctx context.Context, instructorID string, from, to time.Time) ([]models.ClassSession, error)
	SumAssignedHoursBetween(ctx context.Context, instructorID string, from, to time.Time) (float64, error)
}

// ConflictChecker detects overlapping instructor commitments. A proposed
// assignment conflicts with an existing one when the existing session
// intersects the target window padded by the buffer on both sides; sessions
// separated by exactly the buffer do not conflict.
type ConflictChecker struct {
	schedule instructorScheduleReader
	buffer   time.Duration
}

// NewConflictChecker builds a checker with the given default buffer.
// A non-positive buffer falls back to one hour.
func NewConflictChecker(schedule instructorScheduleReader, buffer time.Duration) *ConflictChecker {
	if buffer <= 0 {
		buffer = time.Hour
	}
	return &ConflictChecker{schedule: schedule, buffer: buffer}
}

// Check returns a SchedulingConflict error when the instructor has existing
// assignments inside the buffered window of the target session. minGap
// widens the buffer when the studio policy demands more separation than the
// default. The target session itself is never its own conflict.
func (c *ConflictChecker) Check(ctx context.Context, instructorID string, target *models.ClassSession, minGap time.Duration) error {
	buffer := c.buffer
	if minGap > buffer {
		buffer = minGap
	}

	from := target.StartTime.Add(-buffer)
	to := target.EndTime.Add(buffer)

	sessions, err := c.schedule.ListByInstructorBetween(ctx, instructorID, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor schedule")
	}

	var conflicts []models.SessionConflict
	for _, session := range sessions {
		if session.ID == target.ID {
			continue
		}
		conflicts = append(conflicts, models.SessionConflict{
			SessionID:    session.ID,
			Name:         session.Name,
			StartTime:    session.StartTime,
			EndTime:      session.EndTime,
			InstructorID: instructorID,
		})
	}
	if len(conflicts) == 0 {
		return nil
	}

	detail := &models.SessionConflictError{
		Message:   fmt.Sprintf("instructor has %d overlapping commitment(s)", len(conflicts)),
		Conflicts: conflicts,
	}
	return appErrors.Wrap(detail, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, appErrors.ErrSchedulingConflict.Message)
}

// CheckWeeklyLoad verifies the instructor stays within the studio's weekly
// hour limit after taking on the target session. The week is the UTC
// Monday-to-Monday window containing the session start.
func (c *ConflictChecker) CheckWeeklyLoad(ctx context.Context, instructorID string, target *models.ClassSession, maxWeeklyHours int) error {
	if maxWeeklyHours <= 0 {
		return nil
	}

	weekStart := startOfWeekUTC(target.StartTime)
	weekEnd := weekStart.Add(7 * 24 * time.Hour)

	hours, err := c.schedule.SumAssignedHoursBetween(ctx, instructorID, weekStart, weekEnd)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor weekly hours")
	}

	added := target.EndTime.Sub(target.StartTime).Hours()
	if hours+added > float64(maxWeeklyHours) {
		return appErrors.Clone(appErrors.ErrConflict, "instructor would exceed the weekly hour limit")
	}
	return nil
}

func startOfWeekUTC(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}
