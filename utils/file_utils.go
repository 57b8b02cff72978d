package utils

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// Base URL for serving files
	baseURL = "/uploads"
	// Maximum profile image size (5MB)
	maxImageSize = 5 * 1024 * 1024
	// Profile images are fitted into this square
	profileImageSize = 512
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var (
	ErrImageTooLarge = errors.New("file too large")
	ErrImageType     = errors.New("unsupported image format. Allowed formats: jpg, jpeg, png, gif")
)

// ValidateImage checks the extension and size of an uploaded image.
func ValidateImage(file *multipart.FileHeader) error {
	if file.Size > maxImageSize {
		return ErrImageTooLarge
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(file.Filename))] {
		return ErrImageType
	}
	return nil
}

// InitializeStorage creates the upload directories under root.
func InitializeStorage(root string) error {
	if err := os.MkdirAll(filepath.Join(root, "profiles"), 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return nil
}

// SaveProfileImage decodes the upload, fits it into a square, re-encodes it as JPEG under
// root/profiles and returns its public URL.
func SaveProfileImage(root string, file *multipart.FileHeader) (string, error) {
	if err := ValidateImage(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrImageType
	}
	img = imaging.Fit(img, profileImageSize, profileImageSize, imaging.Lanczos)

	name := uuid.NewString() + ".jpg"
	dir := filepath.Join(root, "profiles")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save profile image: %w", err)
	}

	return fmt.Sprintf("%s/profiles/%s", baseURL, name), nil
}

// RemoveUpload deletes a file previously returned by SaveProfileImage.
func RemoveUpload(root, url string) error {
	rel := strings.TrimPrefix(url, baseURL+"/")
	if rel == url || strings.Contains(rel, "..") {
		return fmt.Errorf("not an upload path: %s", url)
	}
	return os.Remove(filepath.Join(root, filepath.FromSlash(rel)))
}
