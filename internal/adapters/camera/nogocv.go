//go:build !gocv

package camera

import (
	"errors"

	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// ErrNoOpenCV is returned when the OpenCV backend is selected in a build
// without the gocv tag.
var ErrNoOpenCV = errors.New("camera: built without OpenCV support (rebuild with -tags gocv)")

// NewOpenCV is unavailable in this build.
func NewOpenCV(device string, logger log.Logger) (ports.Sensor, error) {
	return nil, ErrNoOpenCV
}
