package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// New2DPlot creates new plot of the simulation from the three data sources,
// each storing one (X, Y) point per row in its first two columns:
// truth:   true system positions
// measure: measurement values
// filter:  filter estimates
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func New2DPlot(truth, measure, filter *mat.Dense) (*plot.Plot, error) {
	if truth == nil || measure == nil || filter == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	for _, m := range []*mat.Dense{truth, measure, filter} {
		if _, c := m.Dims(); c < 2 {
			return nil, fmt.Errorf("invalid data dimensions: %d columns", c)
		}
	}

	p := plot.New()

	p.Title.Text = "Simulation"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Legend.Top = true

	series := []struct {
		name  string
		data  *mat.Dense
		color color.Color
		shape draw.GlyphDrawer
	}{
		{name: "truth", data: truth, color: color.RGBA{R: 255, B: 128, A: 255}, shape: draw.PyramidGlyph{}},
		{name: "measurement", data: measure, color: color.RGBA{G: 255, A: 128}, shape: draw.CircleGlyph{}},
		{name: "filtered", data: filter, color: color.RGBA{R: 169, G: 169, B: 169, A: 255}, shape: draw.CrossGlyph{}},
	}

	for _, s := range series {
		scatter, err := plotter.NewScatter(makePoints(s.data))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s scatter: %v", s.name, err)
		}
		scatter.GlyphStyle.Color = s.color
		scatter.GlyphStyle.Shape = s.shape
		scatter.GlyphStyle.Radius = vg.Points(3)

		p.Add(scatter)
		p.Legend.Add(s.name, scatter)
	}

	return p, nil
}

// SavePlot saves plot p to file path; the format is derived from the path extension.
func SavePlot(p *plot.Plot, path string) error {
	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot to %s: %v", path, err)
	}

	return nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
