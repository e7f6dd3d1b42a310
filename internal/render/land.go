package render

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/rtm0/odmaps/internal/grid"
)

// LoadLand reads the polygons of a longitude/latitude shapefile that overlap
// ext.
func LoadLand(path string, ext grid.Extent) ([]geom.Polygon, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	box := &geom.Bounds{
		Min: geom.Point{X: ext.LonMin, Y: ext.LatMin},
		Max: geom.Point{X: ext.LonMax, Y: ext.LatMax},
	}
	var land []geom.Polygon
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		pg, ok := g.(geom.Polygonal)
		if !ok {
			continue
		}
		for _, p := range pg.Polygons() {
			if box.Overlaps(p.Bounds()) {
				land = append(land, p)
			}
		}
	}
	if err := d.Error(); err != nil {
		return nil, err
	}
	return land, nil
}
