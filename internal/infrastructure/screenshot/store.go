package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"brighthorizons-e2e/internal/application/port/output"
	"brighthorizons-e2e/internal/domain/entity"

	"github.com/disintegration/imaging"
)

var _ output.ScreenshotStore = (*Store)(nil)

var ErrInvalidName = errors.New("invalid screenshot name")

// Store writes captures as <dir>/<name>.png. Captures wider than MaxWidth
// are downscaled; zero keeps them as taken.
type Store struct {
	dir      string
	maxWidth int
}

func NewStore(dir string, maxWidth int) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir, maxWidth: maxWidth}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Save(name string, data []byte, fullPage bool) (*entity.Screenshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot %s: %w", name, err)
	}

	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(s.dir, name+".png")
	if err := imaging.Save(img, path); err != nil {
		return nil, fmt.Errorf("save screenshot %s: %w", name, err)
	}

	return &entity.Screenshot{
		Name:     name,
		Path:     path,
		FullPage: fullPage,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}, nil
}

func (s *Store) SaveHTML(name string, html string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(s.dir, name+".html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return path, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
