package common

import "fmt"

// ZoomLevel selects the resolution of the tile grid: 2^zoom by 2^zoom tiles.
type ZoomLevel int

const (
	MinZoom = 1
	MaxZoom = 23
)

type levelDetail struct {
	// meters per pixel at the equator
	resolution float64
	// 1:N at 96 dpi
	scale float64
}

var levels = [MaxZoom + 1]levelDetail{
	1:  {78271.52, 295829355.45},
	2:  {39135.76, 147914677.73},
	3:  {19567.88, 73957338.86},
	4:  {9783.94, 36978669.43},
	5:  {4891.97, 18489334.72},
	6:  {2445.98, 9244667.36},
	7:  {1222.99, 4622333.68},
	8:  {611.50, 2311166.84},
	9:  {305.75, 1155583.42},
	10: {152.87, 577791.71},
	11: {76.44, 288895.85},
	12: {38.22, 144447.93},
	13: {19.11, 72223.96},
	14: {9.55, 36111.98},
	15: {4.78, 18055.99},
	16: {2.39, 9028.00},
	17: {1.19, 4514.00},
	18: {0.5972, 2257.00},
	19: {0.2986, 1128.50},
	20: {0.1493, 564.25},
	21: {0.0746, 282.12},
	22: {0.0373, 141.06},
	23: {0.0187, 70.53},
}

func (z ZoomLevel) Validate() error {
	if z < MinZoom || z > MaxZoom {
		return fmt.Errorf("%w: zoom %d out of range [%d, %d]", ErrInvalidInput, int(z), MinZoom, MaxZoom)
	}
	return nil
}

// GroundResolution returns the meters covered by one pixel at the equator. The zoom must be valid.
func (z ZoomLevel) GroundResolution() float64 {
	return levels[z].resolution
}

// MapScale returns the denominator of the nominal map scale at 96 dpi. The zoom must be valid.
func (z ZoomLevel) MapScale() float64 {
	return levels[z].scale
}

// MapSize returns the width and height of the whole world in pixels at this zoom.
func (z ZoomLevel) MapSize(tileSize int) float64 {
	return float64(uint64(tileSize) << uint(z))
}
