package service

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/dataset"
	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/pipeline"
	"github.com/jengzang/camglobe/internal/repository"
)

// CameraService handles business logic for cameras and keeps the pipeline's
// point set in sync with the database
type CameraService struct {
	cameraRepo *repository.CameraRepository
	pipeline   *pipeline.Pipeline
	log        zerolog.Logger
}

// NewCameraService creates a new camera service
func NewCameraService(cameraRepo *repository.CameraRepository, p *pipeline.Pipeline, log zerolog.Logger) *CameraService {
	return &CameraService{
		cameraRepo: cameraRepo,
		pipeline:   p,
		log:        log.With().Str("component", "camera_service").Logger(),
	}
}

func validateFilter(filter models.CameraFilter) error {
	for _, lat := range []*float64{filter.MinLat, filter.MaxLat} {
		if lat != nil && (math.IsNaN(*lat) || *lat < -90 || *lat > 90) {
			return fmt.Errorf("%w: latitude bound out of range", ErrInvalidParams)
		}
	}
	for _, lon := range []*float64{filter.MinLon, filter.MaxLon} {
		if lon != nil && (math.IsNaN(*lon) || *lon < -180 || *lon > 180) {
			return fmt.Errorf("%w: longitude bound out of range", ErrInvalidParams)
		}
	}
	if filter.MinLat != nil && filter.MaxLat != nil && *filter.MinLat > *filter.MaxLat {
		return fmt.Errorf("%w: minLat is greater than maxLat", ErrInvalidParams)
	}
	return nil
}

// List retrieves cameras with filtering and pagination
func (s *CameraService) List(filter models.CameraFilter) (*models.CamerasResponse, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	cameras, total, err := s.cameraRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	if cameras == nil {
		cameras = []models.Camera{}
	}

	return &models.CamerasResponse{
		Data:       cameras,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// GetByID retrieves a single camera
func (s *CameraService) GetByID(id string) (*models.Camera, error) {
	camera, err := s.cameraRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	if camera == nil {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	return camera, nil
}

// Reload replaces the pipeline's point set with the cameras matching filter
// and returns the new point count
func (s *CameraService) Reload(filter models.CameraFilter) (int, error) {
	if err := validateFilter(filter); err != nil {
		return 0, err
	}
	cameras, err := s.cameraRepo.All(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to load cameras: %w", err)
	}

	version := s.pipeline.SetPoints(models.CameraPoints(cameras))
	s.log.Info().Int("cameras", len(cameras)).Uint64("version", version).Msg("point store reloaded")
	return s.pipeline.Len(), nil
}

// Import normalizes and upserts cameras, then reloads the full point set.
// Records with unusable coordinates are dropped; missing ids are derived.
func (s *CameraService) Import(cameras []models.Camera) (int, error) {
	if len(cameras) == 0 {
		return 0, fmt.Errorf("%w: no cameras supplied", ErrInvalidParams)
	}
	cameras, stats := dataset.Normalize(cameras)
	if stats.Kept == 0 {
		return 0, fmt.Errorf("%w: no camera has valid coordinates", ErrInvalidParams)
	}
	if stats.Invalid > 0 || stats.Duplicates > 0 {
		s.log.Warn().Int("invalid", stats.Invalid).Int("duplicates", stats.Duplicates).Msg("import records dropped")
	}

	n, err := s.cameraRepo.UpsertBatch(cameras)
	if err != nil {
		return 0, fmt.Errorf("failed to import cameras: %w", err)
	}
	if _, err := s.Reload(models.CameraFilter{}); err != nil {
		return n, err
	}
	return n, nil
}

// Points returns the size of the live point set
func (s *CameraService) Points() int {
	return s.pipeline.Len()
}

// Delete removes a camera and reloads the point set
func (s *CameraService) Delete(id string) error {
	ok, err := s.cameraRepo.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	_, err = s.Reload(models.CameraFilter{})
	return err
}
