package service

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
	"github.com/coasterpix/coasterpix-backend/pkg/storage"
	"github.com/coasterpix/coasterpix-backend/pkg/utils"
)

var ErrPhotoLocked = errors.New("photo is not unlocked for this user")

const downloadExpiry = 15 * time.Minute

type PhotoService struct {
	photoRepo  *repository.PhotoRepository
	unlockRepo *repository.UnlockedPhotoRepository
	r2Storage  storage.StorageService
}

func NewPhotoService(
	photoRepo *repository.PhotoRepository,
	unlockRepo *repository.UnlockedPhotoRepository,
	r2Storage storage.StorageService,
) *PhotoService {
	return &PhotoService{
		photoRepo:  photoRepo,
		unlockRepo: unlockRepo,
		r2Storage:  r2Storage,
	}
}

// IngestCapture stores a photo delivered by a park capture point: original
// to R2, metadata row to the store. The file name keeps the capture
// system's speed suffix so the leaderboard fallback keeps working.
func (s *PhotoService) IngestCapture(req models.IngestPhotoRequest, file *multipart.FileHeader) (*models.Photo, error) {
	capturedAt, err := time.Parse(time.RFC3339, req.CapturedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid captured_at: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Random prefix keeps same-named files from different capture points
	// from overwriting each other; the speed suffix stays at the end of the
	// base name where ResolveSpeed expects it.
	key := fmt.Sprintf("parks/%d/%s/%s_%s",
		req.ParkID, capturedAt.UTC().Format("2006-01-02"), utils.GenerateRandomString(8), file.Filename)
	if err := s.r2Storage.Upload(key, src); err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ParkID:       req.ParkID,
		CapturePoint: req.CapturePoint,
		FileName:     file.Filename,
		R2Key:        key,
		SpeedKmh:     req.SpeedKmh,
		CapturedAt:   capturedAt.UTC(),
	}
	if err := s.photoRepo.Create(photo); err != nil {
		// The row is the source of truth; drop the orphaned object.
		s.r2Storage.Delete(key)
		return nil, err
	}

	return photo, nil
}

// BrowseDay lists a park's photos for one UTC calendar day, flagging which
// ones the user has unlocked.
func (s *PhotoService) BrowseDay(userID, parkID uint, day time.Time) ([]models.PhotoResponse, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	photos, err := s.photoRepo.GetByParkAndCaptureWindow(parkID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return s.toResponses(userID, photos)
}

// BrowseWindow lists a park's photos inside an arbitrary window (used for
// ride galleries).
func (s *PhotoService) BrowseWindow(userID, parkID uint, from, to time.Time) ([]models.PhotoResponse, error) {
	photos, err := s.photoRepo.GetByParkAndCaptureWindow(parkID, from, to)
	if err != nil {
		return nil, err
	}
	return s.toResponses(userID, photos)
}

func (s *PhotoService) GetUnlockedPhotos(userID uint) ([]models.PhotoResponse, error) {
	unlocks, err := s.unlockRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	responses := make([]models.PhotoResponse, 0, len(unlocks))
	for _, unlock := range unlocks {
		photo, err := s.photoRepo.GetByID(unlock.PhotoID)
		if err != nil {
			continue
		}
		responses = append(responses, s.toResponse(photo, true))
	}
	return responses, nil
}

// DownloadURL returns a presigned high-res URL, only for unlocked photos.
func (s *PhotoService) DownloadURL(userID, photoID uint) (string, error) {
	unlocked, err := s.unlockRepo.IsUnlocked(userID, photoID)
	if err != nil {
		return "", err
	}
	if !unlocked {
		return "", ErrPhotoLocked
	}

	photo, err := s.photoRepo.GetByID(photoID)
	if err != nil {
		return "", err
	}

	return s.r2Storage.PresignDownload(photo.R2Key, downloadExpiry)
}

func (s *PhotoService) toResponses(userID uint, photos []models.Photo) ([]models.PhotoResponse, error) {
	responses := make([]models.PhotoResponse, 0, len(photos))
	for i := range photos {
		unlocked, err := s.unlockRepo.IsUnlocked(userID, photos[i].ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, s.toResponse(&photos[i], unlocked))
	}
	return responses, nil
}

func (s *PhotoService) toResponse(photo *models.Photo, unlocked bool) models.PhotoResponse {
	return models.PhotoResponse{
		ID:           photo.ID,
		ParkID:       photo.ParkID,
		CapturePoint: photo.CapturePoint,
		SpeedKmh:     utils.ResolveSpeed(photo.SpeedKmh, photo.R2Key),
		CapturedAt:   photo.CapturedAt,
		Unlocked:     unlocked,
		PreviewURL:   s.r2Storage.PublicURL(photo.R2Key),
	}
}
