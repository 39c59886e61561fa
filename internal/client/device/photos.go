package device

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
)

// LoadPhoto opens the image at path and returns a Photo reference with its
// pixel dimensions. Only the header is decoded; the bytes stay on disk
// until submission.
func LoadPhoto(path string) (models.Photo, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Photo{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return models.Photo{}, fmt.Errorf("not a supported image: %w", err)
	}

	return models.Photo{URI: path, Width: cfg.Width, Height: cfg.Height}, nil
}
