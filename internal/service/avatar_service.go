package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
)

const (
	maxAvatarSize    = 5 * 1024 * 1024 // 5 MB
	presignedURLTTL  = 15 * time.Minute
	avatarPathPrefix = "avatars"
)

var (
	ErrFileTooBig      = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType = errors.New("invalid file type, only JPEG and PNG images are allowed")

	allowedAvatarTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// AvatarStorage abstracts the object store holding avatar images.
type AvatarStorage interface {
	Upload(ctx context.Context, userID uint, file io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectKey string) error
	PresignedURL(ctx context.Context, objectKey string) (string, error)
}

// MinioAvatarStorage stores avatars in a MinIO/S3-compatible bucket.
type MinioAvatarStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioAvatarStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioAvatarStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := &MinioAvatarStorage{client: client, bucket: bucket}
	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioAvatarStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check avatar bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create avatar bucket: %w", err)
		}
	}
	return nil
}

// Upload validates the file and stores it under a per-user key. The key is
// random per upload so a replaced avatar never serves stale cached bytes.
func (s *MinioAvatarStorage) Upload(ctx context.Context, userID uint, file io.Reader, size int64, contentType string) (string, error) {
	if size > maxAvatarSize {
		return "", ErrFileTooBig
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return "", ErrInvalidFileType
	}

	objectKey := fmt.Sprintf("%s/user-%d/%s%s", avatarPathPrefix, userID, uuid.NewString(), ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, file, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return objectKey, nil
}

func (s *MinioAvatarStorage) Delete(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	return nil
}

func (s *MinioAvatarStorage) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("empty avatar object key")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign avatar url: %w", err)
	}
	return u.String(), nil
}

// NoopAvatarStorage rejects every operation. Used when no object store
// is configured so the rest of the API still serves.
type NoopAvatarStorage struct{}

func (NoopAvatarStorage) Upload(context.Context, uint, io.Reader, int64, string) (string, error) {
	return "", errors.New("avatar storage is not configured")
}

func (NoopAvatarStorage) Delete(context.Context, string) error { return nil }

func (NoopAvatarStorage) PresignedURL(context.Context, string) (string, error) {
	return "", errors.New("avatar storage is not configured")
}

// AvatarService ties avatar objects to user profiles. The profile stores
// the object key; presigned URLs are minted on read.
type AvatarService struct {
	store   Store
	storage AvatarStorage
	logger  *slog.Logger
}

func NewAvatarService(store Store, storage AvatarStorage, logger *slog.Logger) *AvatarService {
	return &AvatarService{store: store, storage: storage, logger: logger}
}

// Upload replaces the user's avatar, deleting the previous object after
// the profile points at the new one. A failed cleanup is logged, not
// surfaced; an orphaned object is harmless.
func (s *AvatarService) Upload(ctx context.Context, userID uint, file io.Reader, size int64, contentType string) (string, error) {
	objectKey, err := s.storage.Upload(ctx, userID, file, size, contentType)
	if err != nil {
		return "", err
	}

	var previous string
	err = s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByID(userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}
		if user.Profile == nil {
			user.Profile = &domain.Profile{UserID: user.ID}
		}
		previous = user.Profile.AvatarURL
		user.Profile.AvatarURL = objectKey
		return r.Users.SaveProfile(user.Profile)
	})
	if err != nil {
		if cleanupErr := s.storage.Delete(ctx, objectKey); cleanupErr != nil {
			s.logger.WarnContext(ctx, "avatar cleanup failed", "object_key", objectKey, "error", cleanupErr)
		}
		return "", err
	}

	if previous != "" && previous != objectKey {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "previous avatar cleanup failed", "object_key", previous, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "avatar uploaded", "user_id", userID, "object_key", objectKey)
	return objectKey, nil
}

// Delete removes the user's avatar object and clears the profile pointer.
func (s *AvatarService) Delete(ctx context.Context, userID uint) error {
	var objectKey string
	err := s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByID(userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}
		if user.Profile == nil || user.Profile.AvatarURL == "" {
			return nil
		}
		objectKey = user.Profile.AvatarURL
		user.Profile.AvatarURL = ""
		return r.Users.SaveProfile(user.Profile)
	})
	if err != nil {
		return err
	}
	if objectKey != "" {
		if err := s.storage.Delete(ctx, objectKey); err != nil {
			s.logger.WarnContext(ctx, "avatar object cleanup failed", "object_key", objectKey, "error", err)
		}
	}
	return nil
}

// URL returns a presigned download URL for the user's current avatar.
func (s *AvatarService) URL(ctx context.Context, userID uint) (string, error) {
	user, err := s.store.Repos().Users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: user", ErrNotFound)
		}
		return "", err
	}
	if user.Profile == nil || user.Profile.AvatarURL == "" {
		return "", fmt.Errorf("%w: avatar", ErrNotFound)
	}
	return s.storage.PresignedURL(ctx, user.Profile.AvatarURL)
}
