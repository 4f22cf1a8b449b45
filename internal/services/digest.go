package services

import (
	"context"
	"fmt"
	"time"

	"github.com/congregate/backend/internal/config"
	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DigestService sends reviewers a daily summary of pending membership
// requests. Runs on a cron schedule and skips weekends and public
// holidays, so a Friday backlog is reported Monday morning.
type DigestService struct {
	db       *gorm.DB
	queue    TaskQueue
	holidays *HolidayService
	country  string

	cron  *cron.Cron
	entry cron.EntryID
}

func NewDigestService(db *gorm.DB, queue TaskQueue, holidays *HolidayService, country string) *DigestService {
	if country == "" {
		country = "US"
	}
	return &DigestService{
		db:       db,
		queue:    queue,
		holidays: holidays,
		country:  country,
	}
}

// Start schedules the digest per the cron spec. No-op when disabled.
func (s *DigestService) Start(cfg *config.DigestConfig) error {
	if !cfg.Enabled {
		logger.Infof("[Digest] disabled")
		return nil
	}

	s.cron = cron.New()
	entry, err := s.cron.AddFunc(cfg.Spec, func() {
		if err := s.RunOnce(context.Background(), time.Now()); err != nil {
			logger.Errorf("[Digest] run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.entry = entry
	s.cron.Start()
	logger.Infof("[Digest] scheduled with spec %q", cfg.Spec)
	return nil
}

// Stop halts the scheduler, waiting for a running digest to finish.
func (s *DigestService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce computes pending counts per church and notifies each reviewer.
// Exposed for tests and for a manual admin trigger.
func (s *DigestService) RunOnce(ctx context.Context, now time.Time) error {
	if !s.holidays.IsWorkday(now, s.country) {
		logger.Debugf("[Digest] skipping non-business day %s", now.Format("2006-01-02"))
		return nil
	}

	counts, err := s.pendingCounts(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		logger.Debugf("[Digest] nothing pending")
		return nil
	}

	for churchID, pending := range counts {
		reviewerIDs, err := s.reviewerIDs(ctx, churchID)
		if err != nil {
			logger.Warnf("[Digest] reviewer lookup failed for church %d: %v", churchID, err)
			continue
		}

		message := fmt.Sprintf("%d membership request(s) awaiting review.", pending)
		for _, reviewerID := range reviewerIDs {
			task := &NotificationTask{
				UserID:  reviewerID,
				Type:    models.NotificationRequestReceived,
				Title:   "Pending membership requests",
				Message: message,
			}
			if err := s.queue.Enqueue(task); err != nil {
				logger.Warnf("[Digest] enqueue failed for reviewer %d: %v", reviewerID, err)
			}
		}
	}
	return nil
}

type churchPending struct {
	ChurchID uint
	Pending  int64
}

func (s *DigestService) pendingCounts(ctx context.Context) (map[uint]int64, error) {
	var rows []churchPending
	err := s.db.WithContext(ctx).
		Model(&models.MembershipRequest{}).
		Select("church_id, COUNT(*) AS pending").
		Where("status = ?", models.RequestStatusPending).
		Group("church_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ChurchID] = row.Pending
	}
	return counts, nil
}

func (s *DigestService) reviewerIDs(ctx context.Context, churchID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Table("user_church_roles").
		Distinct("user_church_roles.user_id").
		Joins("JOIN church_role_permissions ON church_role_permissions.role_id = user_church_roles.role_id").
		Where("user_church_roles.church_id = ? AND church_role_permissions.permission_key = ?",
			churchID, "requests:review").
		Pluck("user_church_roles.user_id", &ids).Error
	return ids, err
}
