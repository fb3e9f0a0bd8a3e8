// Package coverage resamples georeferenced rasters. A GridCoverage pairs a
// goraster image with the grid geometry placing its pixels in a coordinate
// reference system; Processor converts a coverage to another grid by
// deriving the pixel transform and delegating to a goraster.Processor.
package coverage

import (
	"fmt"

	"github.com/tingold/goraster"
)

// GridCoverage is a raster image whose pixels are located by a grid geometry
type GridCoverage struct {
	Geometry GridGeometry
	Image    goraster.RasterImage

	source *GridCoverage // coverage this one was resampled from
}

// NewGridCoverage returns a coverage after checking that geometry is
// complete and matches the bounds of img.
func NewGridCoverage(geometry GridGeometry, img goraster.RasterImage) (*GridCoverage, error) {
	if img == nil {
		return nil, &goraster.ArgumentError{Arg: "image", Reason: "must not be nil"}
	}
	if !geometry.IsComplete() {
		return nil, &goraster.ArgumentError{Arg: "geometry", Reason: "grid geometry is incomplete"}
	}
	if geometry.Extent != img.Bounds() {
		return nil, &goraster.ArgumentError{Arg: "geometry",
			Reason: fmt.Sprintf("extent %v does not match image bounds %v", geometry.Extent, img.Bounds())}
	}
	return &GridCoverage{Geometry: geometry, Image: img}, nil
}

// Source returns the coverage this one was resampled from, or nil
func (c *GridCoverage) Source() *GridCoverage { return c.source }
