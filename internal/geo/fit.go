package geo

import (
	"math"

	"agrimarket/internal/directory/models"
	"agrimarket/pkg/requestcontext"
)

const (
	tileSize = 256
	// maxMercatorLat is where the Web-Mercator projection is cut off.
	maxMercatorLat = 85.0511287798

	// EmptyMessage is shown in place of the map when nothing matched.
	EmptyMessage = "No results found"
)

// Size is a map surface in CSS pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SurfaceFor returns the map surface size rendered on a device class.
func SurfaceFor(device requestcontext.DeviceClass) Size {
	switch device {
	case requestcontext.DeviceMobile:
		return Size{Width: 360, Height: 400}
	case requestcontext.DeviceTablet:
		return Size{Width: 768, Height: 500}
	default:
		return Size{Width: 1024, Height: 500}
	}
}

// FitOptions configures viewport fitting.
type FitOptions struct {
	DefaultCenter models.Position
	DefaultZoom   int
	MaxZoom       int
	Padding       float64
	Surface       Size
}

// DefaultFitOptions centers on Kenya.
func DefaultFitOptions() FitOptions {
	return NewFitOptions(0.0236, 37.9062, 6, 12, 0.1)
}

// NewFitOptions builds options for a desktop surface.
func NewFitOptions(lat, lng float64, defaultZoom, maxZoom int, padding float64) FitOptions {
	return FitOptions{
		DefaultCenter: models.Position{lat, lng},
		DefaultZoom:   defaultZoom,
		MaxZoom:       maxZoom,
		Padding:       padding,
		Surface:       SurfaceFor(requestcontext.DeviceDesktop),
	}
}

// Viewport is what the map surface should display.
type Viewport struct {
	Center  models.Position `json:"center"`
	Zoom    int             `json:"zoom"`
	Bounds  *Bounds         `json:"bounds,omitempty"`
	Empty   bool            `json:"empty"`
	Message string          `json:"message,omitempty"`
}

// Fit computes the viewport for markers. With no markers it falls back to the
// default center and zoom and carries the empty-state message.
func Fit(markers []models.Marker, opts FitOptions) Viewport {
	b, ok := BoundsOf(markers)
	if !ok {
		return Viewport{
			Center:  opts.DefaultCenter,
			Zoom:    opts.DefaultZoom,
			Empty:   true,
			Message: EmptyMessage,
		}
	}
	padded := b.Pad(opts.Padding)
	if !padded.finite() {
		// spans near the float64 limit overflow when padded
		padded = b
	}
	if !padded.finite() {
		return Viewport{Center: opts.DefaultCenter, Zoom: 0}
	}
	return Viewport{
		Center: padded.Center(),
		Zoom:   boundsZoom(padded, opts.Surface, opts.MaxZoom),
		Bounds: &padded,
	}
}

// boundsZoom is the largest integer zoom at which b fits inside surface,
// capped at maxZoom.
func boundsZoom(b Bounds, surface Size, maxZoom int) int {
	if maxZoom < 0 {
		maxZoom = 0
	}
	if surface.Width <= 0 || surface.Height <= 0 {
		return 0
	}

	// world pixel extents at zoom 0
	dx := (b.MaxLng - b.MinLng) / 360 * tileSize
	dy := (mercatorY(b.MaxLat) - mercatorY(b.MinLat)) / (2 * math.Pi) * tileSize

	scale := math.Inf(1)
	if dx > 0 {
		scale = math.Min(scale, float64(surface.Width)/dx)
	}
	if dy > 0 {
		scale = math.Min(scale, float64(surface.Height)/dy)
	}
	if math.IsInf(scale, 1) {
		return maxZoom
	}
	if !(scale > 0) {
		// extents overflowed to +Inf
		return 0
	}

	zoom := int(math.Floor(math.Log2(scale)))
	switch {
	case zoom < 0:
		return 0
	case zoom > maxZoom:
		return maxZoom
	default:
		return zoom
	}
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	rad := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + rad/2))
}
