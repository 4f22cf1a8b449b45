package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"gorm.io/gorm"
)

// CalendarService manages team calendar events and attendance.
type CalendarService struct {
	db       *gorm.DB
	holidays *HolidayService
	country  string
}

func NewCalendarService(db *gorm.DB, holidays *HolidayService, country string) *CalendarService {
	if country == "" {
		country = "US"
	}
	return &CalendarService{db: db, holidays: holidays, country: country}
}

// CreateEvent schedules an event and invites the listed attendees in one
// transaction.
func (s *CalendarService) CreateEvent(ctx context.Context, teamID, creatorID uint, title, description, location string, startsAt, endsAt time.Time, attendeeIDs []uint) (*models.TeamCalendarEvent, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.CodeValidation, "event title is required")
	}
	if !endsAt.IsZero() && endsAt.Before(startsAt) {
		return nil, apperr.New(apperr.CodeValidation, "event cannot end before it starts")
	}

	event := models.TeamCalendarEvent{
		TeamID:      teamID,
		Title:       title,
		Description: description,
		Location:    location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		CreatedBy:   creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		for _, userID := range attendeeIDs {
			attendee := models.TeamCalendarEventMember{
				EventID: event.ID,
				UserID:  userID,
				Status:  models.AttendanceInvited,
			}
			if err := tx.Create(&attendee).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	s.annotate(&event)
	return &event, nil
}

// GetEvent returns one event scoped to a team.
func (s *CalendarService) GetEvent(ctx context.Context, teamID, eventID uint) (*models.TeamCalendarEvent, error) {
	var event models.TeamCalendarEvent
	err := s.db.WithContext(ctx).
		Where("id = ? AND team_id = ?", eventID, teamID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "event not found")
		}
		return nil, apperr.Normalize(err)
	}
	s.annotate(&event)
	return &event, nil
}

// ListEvents returns the team's events within [from, to), soonest first.
func (s *CalendarService) ListEvents(ctx context.Context, teamID uint, from, to time.Time) ([]models.TeamCalendarEvent, error) {
	query := s.db.WithContext(ctx).Where("team_id = ?", teamID)
	if !from.IsZero() {
		query = query.Where("starts_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("starts_at < ?", to)
	}

	var events []models.TeamCalendarEvent
	if err := query.Order("starts_at ASC").Find(&events).Error; err != nil {
		return nil, apperr.Normalize(err)
	}
	for i := range events {
		s.annotate(&events[i])
	}
	return events, nil
}

// UpdateEvent edits event fields.
func (s *CalendarService) UpdateEvent(ctx context.Context, teamID, eventID uint, updates map[string]interface{}) (*models.TeamCalendarEvent, error) {
	result := s.db.WithContext(ctx).Model(&models.TeamCalendarEvent{}).
		Where("id = ? AND team_id = ?", eventID, teamID).
		Updates(updates)
	if result.Error != nil {
		return nil, apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.CodeNotFound, "event not found")
	}
	return s.GetEvent(ctx, teamID, eventID)
}

// DeleteEvent removes an event and its attendance rows.
func (s *CalendarService) DeleteEvent(ctx context.Context, teamID, eventID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND team_id = ?", eventID, teamID).
			Delete(&models.TeamCalendarEvent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "event not found")
		}
		return tx.Where("event_id = ?", eventID).
			Delete(&models.TeamCalendarEventMember{}).Error
	})
	return apperr.Normalize(err)
}

// SetAttendance records a user's going/declined answer for an event.
func (s *CalendarService) SetAttendance(ctx context.Context, eventID, userID uint, status string) error {
	if status != models.AttendanceGoing && status != models.AttendanceDeclined {
		return apperr.New(apperr.CodeValidation, "attendance must be going or declined")
	}

	result := s.db.WithContext(ctx).Model(&models.TeamCalendarEventMember{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Update("status", status)
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "you are not invited to this event")
	}
	return nil
}

// ListAttendees returns the attendance roster for an event.
func (s *CalendarService) ListAttendees(ctx context.Context, eventID uint) ([]models.TeamCalendarEventMember, error) {
	var attendees []models.TeamCalendarEventMember
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("status ASC, created_at ASC").
		Find(&attendees).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	return attendees, nil
}

func (s *CalendarService) annotate(event *models.TeamCalendarEvent) {
	event.IsBusinessDay = s.holidays.IsWorkday(event.StartsAt, s.country)
}
