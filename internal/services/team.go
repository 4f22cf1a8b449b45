package services

import (
	"context"
	"errors"
	"strings"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
)

// TeamService manages ministry teams, their members and groups.
type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

// CreateTeam creates a team and makes the creator its admin in one
// transaction.
func (s *TeamService) CreateTeam(ctx context.Context, churchID, creatorID uint, name, description string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "team name is required")
	}

	team := models.Team{
		ChurchID:    churchID,
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		admin := models.TeamMember{
			TeamID: team.ID,
			UserID: creatorID,
			Role:   models.TeamRoleAdmin,
		}
		return tx.Create(&admin).Error
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	logger.Info().Uint("team_id", team.ID).Uint("church_id", churchID).Msg("team created")
	return &team, nil
}

// GetTeam returns one team, verifying it belongs to the church.
func (s *TeamService) GetTeam(ctx context.Context, churchID, teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).
		Where("id = ? AND church_id = ?", teamID, churchID).
		First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "team not found")
		}
		return nil, apperr.Normalize(err)
	}
	return &team, nil
}

// ListChurchTeams returns the church's teams alphabetically.
func (s *TeamService) ListChurchTeams(ctx context.Context, churchID uint) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Where("church_id = ?", churchID).
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	return teams, nil
}

// AddMember adds a user to the team. Adding an existing member is a
// conflict, not an upgrade; use UpdateMemberRole to change roles.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID uint, role string) (*models.TeamMember, error) {
	if role == "" {
		role = models.TeamRoleMember
	}
	if role != models.TeamRoleAdmin && role != models.TeamRoleMember {
		return nil, apperr.New(apperr.CodeValidation, "team role must be admin or member")
	}

	member := models.TeamMember{TeamID: teamID, UserID: userID, Role: role}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.New(apperr.CodeConflict, "user is already a team member")
		}
		return nil, apperr.Normalize(err)
	}
	return &member, nil
}

// UpdateMemberRole switches a member between admin and member.
func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, userID uint, role string) error {
	if role != models.TeamRoleAdmin && role != models.TeamRoleMember {
		return apperr.New(apperr.CodeValidation, "team role must be admin or member")
	}

	result := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "team member not found")
	}
	return nil
}

// RemoveMember drops a user from the team and any group they were in.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("team_id = ? AND user_id = ?", teamID, userID).
			Delete(&models.TeamMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "team member not found")
		}

		return tx.Where("user_id = ? AND group_id IN (?)", userID,
			tx.Model(&models.TeamGroup{}).Select("id").Where("team_id = ?", teamID),
		).Delete(&models.TeamGroupMember{}).Error
	})
	return apperr.Normalize(err)
}

// ListMembers returns the team roster with user details preloaded.
func (s *TeamService) ListMembers(ctx context.Context, teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("role ASC, created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	return members, nil
}

// IsTeamAdmin reports whether the user is an admin of the team.
func (s *TeamService) IsTeamAdmin(ctx context.Context, teamID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND role = ?", teamID, userID, models.TeamRoleAdmin).
		Count(&count).Error
	if err != nil {
		return false, apperr.Normalize(err)
	}
	return count > 0, nil
}

// IsTeamMember reports whether the user belongs to the team at all.
func (s *TeamService) IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Normalize(err)
	}
	return count > 0, nil
}

// --- Groups ---

// CreateGroup adds a group to the team. Group names are unique per team.
func (s *TeamService) CreateGroup(ctx context.Context, teamID uint, name string) (*models.TeamGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "group name is required")
	}

	group := models.TeamGroup{TeamID: teamID, Name: name}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		if apperr.IsConflict(err) {
			return nil, apperr.New(apperr.CodeConflict, "a group with this name already exists")
		}
		return nil, apperr.Normalize(err)
	}
	return &group, nil
}

// ListGroups returns the team's groups.
func (s *TeamService) ListGroups(ctx context.Context, teamID uint) ([]models.TeamGroup, error) {
	var groups []models.TeamGroup
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	return groups, nil
}

// AssignMemberToGroup places a team member into a group, moving them out
// of any previous group in the same team. A member holds at most one
// group per team.
func (s *TeamService) AssignMemberToGroup(ctx context.Context, teamID, groupID, userID uint) error {
	var group models.TeamGroup
	err := s.db.WithContext(ctx).
		Where("id = ? AND team_id = ?", groupID, teamID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.CodeNotFound, "group not found")
		}
		return apperr.Normalize(err)
	}

	isMember, err := s.IsTeamMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.New(apperr.CodeValidation, "user is not a member of this team")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND group_id IN (?)", userID,
			tx.Model(&models.TeamGroup{}).Select("id").Where("team_id = ?", teamID),
		).Delete(&models.TeamGroupMember{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.TeamGroupMember{GroupID: groupID, UserID: userID}).Error
	})
	return apperr.Normalize(err)
}

// GetUserGroupForTeam returns the group the user is in for this team, or
// nil when ungrouped.
func (s *TeamService) GetUserGroupForTeam(ctx context.Context, teamID, userID uint) (*models.TeamGroup, error) {
	var group models.TeamGroup
	err := s.db.WithContext(ctx).
		Joins("JOIN team_group_members ON team_group_members.group_id = team_groups.id").
		Where("team_groups.team_id = ? AND team_group_members.user_id = ?", teamID, userID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Normalize(err)
	}
	return &group, nil
}

// RemoveMemberFromGroup takes a user out of a group.
func (s *TeamService) RemoveMemberFromGroup(ctx context.Context, groupID, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.TeamGroupMember{})
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "group membership not found")
	}
	return nil
}
