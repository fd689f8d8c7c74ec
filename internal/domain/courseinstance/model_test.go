package courseinstance_test

import (
	"testing"
	"time"

	"gymdesk/internal/domain/courseinstance"
)

func validInstance() courseinstance.CourseInstance {
	return courseinstance.CourseInstance{
		ID:          "ci-1",
		ScheduleID:  "sched-1",
		ClassTypeID: "ct-1",
		TrainerID:   "trainer-1",
		CourseDate:  "2026-03-10",
		StartTime:   "10:00",
		EndTime:     "11:00",
		MaxCapacity: 12,
		Status:      courseinstance.StatusScheduled,
	}
}

// TestCourseInstance_Validate tests validation of CourseInstance.
func TestCourseInstance_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *courseinstance.CourseInstance)
		wantErr bool
	}{
		{"valid", func(c *courseinstance.CourseInstance) {}, false},
		{"missing schedule", func(c *courseinstance.CourseInstance) { c.ScheduleID = "" }, true},
		{"missing class type", func(c *courseinstance.CourseInstance) { c.ClassTypeID = "" }, true},
		{"bad date", func(c *courseinstance.CourseInstance) { c.CourseDate = "10/03/2026" }, true},
		{"bad start time", func(c *courseinstance.CourseInstance) { c.StartTime = "10am" }, true},
		{"zero capacity", func(c *courseinstance.CourseInstance) { c.MaxCapacity = 0 }, true},
		{"unknown status", func(c *courseinstance.CourseInstance) { c.Status = "postponed" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validInstance()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CourseInstance.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestCourseInstance_HasStarted tests the start boundary (inclusive).
func TestCourseInstance_HasStarted(t *testing.T) {
	c := validInstance()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	if c.HasStarted(start.Add(-time.Minute)) {
		t.Error("instance must not have started one minute before start time")
	}
	if !c.HasStarted(start) {
		t.Error("instance has started at exactly the start time")
	}
	if !c.HasStarted(start.Add(time.Hour)) {
		t.Error("instance has started after the start time")
	}
}

// TestCourseInstance_HasEnded tests the end boundary.
func TestCourseInstance_HasEnded(t *testing.T) {
	c := validInstance()
	end := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	if c.HasEnded(end) {
		t.Error("instance has not ended at exactly the end time")
	}
	if !c.HasEnded(end.Add(time.Second)) {
		t.Error("instance has ended after the end time")
	}
}

// TestCourseInstance_Overlaps tests [start, end) window intersection.
func TestCourseInstance_Overlaps(t *testing.T) {
	base := validInstance()

	tests := []struct {
		name  string
		date  string
		start string
		end   string
		want  bool
	}{
		{"identical window", "2026-03-10", "10:00", "11:00", true},
		{"partial overlap", "2026-03-10", "10:30", "11:30", true},
		{"contained window", "2026-03-10", "10:15", "10:45", true},
		{"back to back after", "2026-03-10", "11:00", "12:00", false},
		{"back to back before", "2026-03-10", "09:00", "10:00", false},
		{"different date", "2026-03-11", "10:00", "11:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := validInstance()
			other.ID = "ci-2"
			other.CourseDate = tt.date
			other.StartTime = tt.start
			other.EndTime = tt.end
			if got := base.Overlaps(&other); got != tt.want {
				t.Errorf("Overlaps(%s %s-%s) = %v, want %v", tt.date, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// TestCourseInstance_IsOpen tests which statuses accept registrations.
func TestCourseInstance_IsOpen(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{courseinstance.StatusScheduled, true},
		{courseinstance.StatusInProgress, false},
		{courseinstance.StatusCompleted, false},
		{courseinstance.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := validInstance()
			c.Status = tt.status
			if got := c.IsOpen(); got != tt.want {
				t.Errorf("IsOpen() with status=%s = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
