package forecast

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nilsmagnus/grib/griblib"
	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/latlon"
)

const msToKnots = 1.9438444924406

// GribProvider serves conditions from 10m U/V wind fields in local GRIB2
// files instead of a hosted API. Useful offline and for replaying archived
// forecasts.
type GribProvider struct {
	dir string

	mu    sync.RWMutex
	grids []*windGrid
}

type windGrid struct {
	ref  time.Time
	file string
	lat0 float64
	lon0 float64
	dLat float64
	dLon float64
	nLat uint32
	nLon uint32
	u    [][]float64
	v    [][]float64
}

// NewGribProvider loads every GRIB file in dir. At least one usable wind
// field is required.
func NewGribProvider(dir string) (*GribProvider, error) {
	g := &GribProvider{dir: dir}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload re-scans the directory. Safe to call from a scheduler while
// requests are in flight.
func (g *GribProvider) Reload() error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("forecast: read grib dir %s: %w", g.dir, err)
	}

	var grids []*windGrid
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		grid, err := loadGrid(filepath.Join(g.dir, e.Name()), info.ModTime())
		if err != nil {
			log.Warnf("Skip grib file %s: %v", e.Name(), err)
			continue
		}
		grids = append(grids, grid)
	}
	if len(grids) == 0 {
		return fmt.Errorf("forecast: no usable wind field in %s", g.dir)
	}

	sort.Slice(grids, func(i, j int) bool { return grids[i].ref.Before(grids[j].ref) })

	g.mu.Lock()
	g.grids = grids
	g.mu.Unlock()

	log.Infof("Loaded %d grib wind fields from %s", len(grids), g.dir)
	return nil
}

// CurrentConditions interpolates the most recent wind field at the point.
// GRIB wind files carry no gust or sea state, so those stay zero.
func (g *GribProvider) CurrentConditions(_ context.Context, pos latlon.LatLon) (WindForecast, error) {
	if err := pos.Validate(); err != nil {
		return WindForecast{}, err
	}

	g.mu.RLock()
	grids := g.grids
	g.mu.RUnlock()

	if len(grids) == 0 {
		return WindForecast{}, fmt.Errorf("forecast: no grib data loaded")
	}
	grid := grids[len(grids)-1]

	u, v, err := grid.interpolate(pos.Lat, pos.Lon)
	if err != nil {
		return WindForecast{}, err
	}
	speed := math.Sqrt(u*u + v*v)

	return WindForecast{
		Time:          grid.ref,
		WindSpeed:     speed * msToKnots,
		WindDirection: vectorToDegrees(u, v, speed),
		GustSpeed:     0,
		WaveHeight:    0,
	}, nil
}

func loadGrid(path string, modTime time.Time) (*windGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	messages, err := griblib.ReadMessages(f)
	if err != nil {
		return nil, err
	}

	w := &windGrid{ref: modTime, file: path}
	for _, message := range messages {
		if message.Section0.Discipline != 0 ||
			message.Section4.ProductDefinitionTemplate.ParameterCategory != 2 ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Type != 103 ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Value != 10 {
			continue
		}
		grid0, ok := message.Section3.Definition.(*griblib.Grid0)
		if !ok {
			continue
		}
		w.lat0 = float64(grid0.La1 / 1e6)
		w.lon0 = float64(grid0.Lo1 / 1e6)
		w.dLat = float64(grid0.Di / 1e6)
		w.dLon = float64(grid0.Dj / 1e6)
		w.nLat = grid0.Nj
		w.nLon = grid0.Ni
		if message.Section4.ProductDefinitionTemplate.ParameterNumber == 2 {
			w.u = w.buildGrid(message.Section7.Data)
		} else if message.Section4.ProductDefinitionTemplate.ParameterNumber == 3 {
			w.v = w.buildGrid(message.Section7.Data)
		}
	}
	if w.u == nil || w.v == nil {
		return nil, fmt.Errorf("no 10m U/V wind records")
	}
	return w, nil
}

// buildGrid lays the flat record out in rows, duplicating the first column
// at the end when the grid wraps the full circle of longitude.
func (w *windGrid) buildGrid(data []float64) [][]float64 {
	isContinuous := math.Floor(float64(w.nLon)*w.dLon) >= 360

	nLon := w.nLon
	if isContinuous {
		nLon++
	}

	grid := make([][]float64, w.nLat)

	p := 0
	for j := uint32(0); j < w.nLat; j++ {
		grid[j] = make([]float64, nLon)
		for i := uint32(0); i < w.nLon; i++ {
			grid[j][i] = data[p]
			p++
		}
		if isContinuous {
			grid[j][w.nLon] = grid[j][0]
		}
	}
	return grid
}

func (w *windGrid) interpolate(lat, lon float64) (float64, float64, error) {
	i := math.Abs((lat - w.lat0) / w.dLat)
	j := floorMod(lon-w.lon0, 360.0) / w.dLon

	fi := uint32(i)
	fj := uint32(j)

	if fi+1 >= w.nLat || fj+1 >= uint32(len(w.u[0])) {
		return 0, 0, fmt.Errorf("point (%f, %f) outside grid %s", lat, lon, w.file)
	}

	u := bilinear(j-float64(fj), i-float64(fi), w.u[fi][fj], w.u[fi][fj+1], w.u[fi+1][fj], w.u[fi+1][fj+1])
	v := bilinear(j-float64(fj), i-float64(fi), w.v[fi][fj], w.v[fi][fj+1], w.v[fi+1][fj], w.v[fi+1][fj+1])

	return u, v, nil
}

func bilinear(x, y, g00, g10, g01, g11 float64) float64 {
	rx := 1 - x
	ry := 1 - y
	return g00*rx*ry + g10*x*ry + g01*rx*y + g11*x*y
}

// vectorToDegrees converts a U/V velocity vector into the meteorological
// direction the wind blows from.
func vectorToDegrees(u, v, d float64) float64 {
	if d == 0 {
		return 0
	}
	velocityDir := math.Atan2(u/d, v/d)
	return velocityDir*180/math.Pi + 180
}

func floorMod(a, n float64) float64 {
	return a - n*math.Floor(a/n)
}
