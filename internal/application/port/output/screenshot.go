package output

import "brighthorizons-e2e/internal/domain/entity"

type ScreenshotStore interface {
	Save(name string, png []byte, fullPage bool) (*entity.Screenshot, error)
	SaveHTML(name string, html string) (string, error)
	Dir() string
}
