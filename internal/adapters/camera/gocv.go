//go:build gocv

package camera

import (
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/pkg/log"
)

// OpenCV captures frames from a V4L2 device through gocv and encodes them to
// JPEG in native memory; the encoded buffer is freed on Frame.Release.
type OpenCV struct {
	device string
	logger log.Logger

	settings ports.SensorSettings
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	guard    bufferGuard
}

// NewOpenCV creates a sensor for device, a V4L2 index ("0") or path.
func NewOpenCV(device string, logger log.Logger) (ports.Sensor, error) {
	if device == "" {
		device = "0"
	}
	return &OpenCV{device: device, logger: logger}, nil
}

func (o *OpenCV) Init(settings ports.SensorSettings) error {
	var source interface{} = o.device
	if id, err := strconv.Atoi(o.device); err == nil {
		source = id
	}
	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return fmt.Errorf("open camera %s: %w", o.device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))

	o.capture = vc
	o.mat = gocv.NewMat()
	o.settings = settings
	return nil
}

func (o *OpenCV) Capture() (*domain.Frame, bool) {
	if o.capture == nil {
		o.logger.Error("capture before init")
		return nil, false
	}
	if !o.guard.acquire() {
		o.logger.Error("capture failed", log.Err(ErrBufferHeld))
		return nil, false
	}

	if ok := o.capture.Read(&o.mat); !ok || o.mat.Empty() {
		o.guard.release()
		o.logger.Error("camera read failed", log.String("device", o.device))
		return nil, false
	}

	switch s := o.settings; {
	case s.VFlip && s.HMirror:
		gocv.Flip(o.mat, &o.mat, -1)
	case s.VFlip:
		gocv.Flip(o.mat, &o.mat, 0)
	case s.HMirror:
		gocv.Flip(o.mat, &o.mat, 1)
	}

	var params []int
	if q := o.settings.JPEGQuality; q > 0 {
		params = []int{gocv.IMWriteJpegQuality, q}
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, o.mat, params)
	if err != nil {
		o.guard.release()
		o.logger.Error("jpeg encode failed", log.Err(err))
		return nil, false
	}

	return domain.NewFrame(buf.GetBytes(), func() {
		buf.Close()
		o.guard.release()
	}), true
}

func (o *OpenCV) Deinit() error {
	if o.capture == nil {
		return nil
	}
	o.mat.Close()
	err := o.capture.Close()
	o.capture = nil
	return err
}
