package service

import (
	"encoding/json"

	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
)

// ProfileService manages named threshold profiles
type ProfileService struct {
	repo *repository.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(repo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// CreateProfileRequest is the body of a profile creation
type CreateProfileRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	SkillName   string          `json:"skill_name" binding:"required"`
	IsDefault   bool            `json:"is_default"`
	Params      detector.Params `json:"params"`
}

// CreateProfile validates and stores a profile
func (s *ProfileService) CreateProfile(req CreateProfileRequest, createdBy string) (*models.ThresholdProfile, error) {
	if !detector.IsRegistered(req.SkillName) || !analysis.IsRegistered(req.SkillName) {
		return nil, invalidf("profiles are only supported for detectors, got %q", req.SkillName)
	}
	if err := validateParams(req.SkillName, req.Params); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return nil, err
	}
	profile := &models.ThresholdProfile{
		Name:        req.Name,
		Description: req.Description,
		SkillName:   req.SkillName,
		IsDefault:   req.IsDefault,
		ParamsJSON:  string(data),
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles lists profiles, optionally of one skill
func (s *ProfileService) ListProfiles(skillName string) ([]*models.ThresholdProfile, error) {
	return s.repo.List(skillName)
}

// GetProfile retrieves a profile by ID
func (s *ProfileService) GetProfile(id int64) (*models.ThresholdProfile, error) {
	return s.repo.GetByID(id)
}

// validateParams builds the detector once with placeholder geometry and rate,
// which trials supply at run time
func validateParams(skillName string, p detector.Params) error {
	if p.SamplingRateHz == nil {
		p.SamplingRateHz = detector.Float(1000)
	}
	p, err := p.InPixels(60, 0.03)
	if err != nil {
		return err
	}
	_, err = detector.New(skillName, p)
	return err
}
