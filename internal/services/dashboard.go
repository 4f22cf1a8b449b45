package services

import (
	"context"
	"time"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"gorm.io/gorm"
)

// DashboardService aggregates church-level statistics for the admin view.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStats struct {
	Members         int64 `json:"members"`
	Teams           int64 `json:"teams"`
	PendingRequests int64 `json:"pending_requests"`
	UpcomingEvents  int64 `json:"upcoming_events"`
}

// RequestTrendPoint is one day's worth of membership request activity.
type RequestTrendPoint struct {
	Date     string `json:"date"`
	Received int64  `json:"received"`
	Accepted int64  `json:"accepted"`
}

type DashboardResponse struct {
	Stats DashboardStats      `json:"stats"`
	Trend []RequestTrendPoint `json:"trend"`
}

// GetStats returns headline counts plus a 30-day request trend for the church.
func (s *DashboardService) GetStats(ctx context.Context, churchID uint) (*DashboardResponse, error) {
	var stats DashboardStats

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("church_id = ?", churchID).
		Count(&stats.Members).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("church_id = ?", churchID).
		Count(&stats.Teams).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.MembershipRequest{}).
		Where("church_id = ? AND status = ?", churchID, models.RequestStatusPending).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.TeamCalendarEvent{}).
		Joins("JOIN teams ON teams.id = team_calendar_events.team_id").
		Where("teams.church_id = ? AND team_calendar_events.starts_at >= ?", churchID, time.Now()).
		Count(&stats.UpcomingEvents).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	trend, err := s.requestTrend(ctx, churchID, 30)
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{Stats: stats, Trend: trend}, nil
}

func (s *DashboardService) requestTrend(ctx context.Context, churchID uint, days int) ([]RequestTrendPoint, error) {
	since := time.Now().AddDate(0, 0, -days)

	var requests []models.MembershipRequest
	err := s.db.WithContext(ctx).
		Where("church_id = ? AND created_at >= ?", churchID, since).
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	// Bucket in Go rather than SQL: date functions differ across the three
	// supported drivers.
	byDay := make(map[string]*RequestTrendPoint)
	for _, r := range requests {
		day := r.CreatedAt.Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &RequestTrendPoint{Date: day}
			byDay[day] = point
		}
		point.Received++
		if r.Status == models.RequestStatusAccepted {
			point.Accepted++
		}
	}

	trend := make([]RequestTrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		if point, ok := byDay[day]; ok {
			trend = append(trend, *point)
		} else {
			trend = append(trend, RequestTrendPoint{Date: day})
		}
	}
	return trend, nil
}
