package model

import "time"

// FocalPointSource records where a focal point came from.
type FocalPointSource string

const (
	FocalSourceManual   FocalPointSource = "manual"
	FocalSourceDetected FocalPointSource = "detected"
	FocalSourceDefault  FocalPointSource = "default"
)

// FocalPoint is the point of interest of a source image, in percent of the
// image size (0..100 on each axis) so it survives any resize.
type FocalPoint struct {
	ID        int64            `db:"id" json:"id,omitempty"`
	URI       string           `db:"uri" json:"uri"`
	X         float64          `db:"x" json:"x"`
	Y         float64          `db:"y" json:"y"`
	Source    FocalPointSource `db:"source" json:"source"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// CenterFocalPoint is used when no focal point is known.
func CenterFocalPoint(uri string) FocalPoint {
	return FocalPoint{URI: uri, X: 50, Y: 50, Source: FocalSourceDefault}
}

// Clamp keeps both coordinates within 0..100.
func (f FocalPoint) Clamp() FocalPoint {
	f.X = clampPercent(f.X)
	f.Y = clampPercent(f.Y)
	return f
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Derivative is the catalog entry of a generated image. Each field has two
// tags: `db` for sqlx row scanning and `json` for API responses.
type Derivative struct {
	ID          int64     `db:"id" json:"id"`
	Identifier  string    `db:"identifier" json:"identifier"`
	URI         string    `db:"uri" json:"uri"`
	Backend     string    `db:"backend" json:"backend"`
	ContentType string    `db:"content_type" json:"content_type"`
	Bytes       int64     `db:"bytes" json:"bytes"`
	Width       int       `db:"width" json:"width"`
	Height      int       `db:"height" json:"height"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DetectionCall tracks each call to a focal point detector for cost
// monitoring.
type DetectionCall struct {
	ID         int64     `db:"id" json:"id"`
	URI        string    `db:"uri" json:"uri"`
	Provider   string    `db:"provider" json:"provider"`
	Model      string    `db:"model" json:"model"`
	Success    bool      `db:"success" json:"success"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
