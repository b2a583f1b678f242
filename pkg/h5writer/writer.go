package h5writer

import (
	"errors"
	"fmt"

	advlab "github.com/advlab/vertexing_go/pkg"
	"github.com/jmbenlloch/go-hdf5"
	"go-hep.org/x/hep/hbook"
)

type Writer struct {
	File           *hdf5.File
	Filename       string
	Compression    int
	ScanGroup      *hdf5.Group
	VertexGroup    *hdf5.Group
	HistGroup      *hdf5.Group
	RatesTable     *hdf5.Dataset
	PeaksTable     *hdf5.Dataset
	LinesTable     *hdf5.Dataset
	CandidateTable *hdf5.Dataset
	SelectedTable  *hdf5.Dataset
	extraTables    []*hdf5.Dataset
}

func NewWriter(filename string, compression int) (*Writer, error) {
	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &advlab.ErrOpenFile{Filename: filename, Err: err}
	}
	w := &Writer{File: f, Filename: filename, Compression: compression}

	if w.ScanGroup, err = createGroup(f, "Scan"); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.VertexGroup, err = createGroup(f, "Vertex"); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.HistGroup, err = createGroup(f, "Histograms"); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.RatesTable, err = createTable(w.ScanGroup, "rates", RateHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.PeaksTable, err = createTable(w.ScanGroup, "peaks", PeakHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.LinesTable, err = createTable(w.VertexGroup, "lines", LineHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.CandidateTable, err = createTable(w.VertexGroup, "candidates", CandidateHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.SelectedTable, err = createTable(w.VertexGroup, "selected", SelectedHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

func (w *Writer) WriteProfile(p advlab.RateProfile) error {
	rows := make([]RateHDF5, len(p.Entries))
	for i, e := range p.Entries {
		rows[i] = RateHDF5{angle: p.Angle, offset: e.Offset, count: int32(e.Count), rate: e.Rate}
	}
	if err := writeArrayToTable(w.RatesTable, &rows); err != nil {
		return fmt.Errorf("error writing rates of angle %g: %w", p.Angle, err)
	}
	return nil
}

func (w *Writer) WritePeaks(peaks []advlab.AnglePeaks) error {
	rows := make([]PeakHDF5, 0)
	for _, ap := range peaks {
		for i, p := range ap.Peaks {
			sigma := 0.
			if i < len(ap.Sigmas) {
				sigma = ap.Sigmas[i]
			}
			rows = append(rows, PeakHDF5{
				angle:     ap.Angle,
				index:     int32(i),
				offset:    p.Offset,
				amplitude: p.Amplitude,
				width:     p.Width,
				sigma:     sigma,
			})
		}
	}
	if err := writeArrayToTable(w.PeaksTable, &rows); err != nil {
		return fmt.Errorf("error writing peaks: %w", err)
	}
	return nil
}

func (w *Writer) WriteLines(combination int, states []advlab.LineState) error {
	rows := make([]LineHDF5, len(states))
	for i, s := range states {
		var degenerate int8
		if s.Degenerate {
			degenerate = 1
		}
		rows[i] = LineHDF5{
			combination: int32(combination),
			angle:       s.Angle,
			offset:      s.Offset,
			x_k:         s.XK,
			u_k:         s.UK,
			degenerate:  degenerate,
		}
	}
	if err := writeArrayToTable(w.LinesTable, &rows); err != nil {
		return fmt.Errorf("error writing lines of combination %d: %w", combination, err)
	}
	return nil
}

func (w *Writer) WriteReconstruction(rec *advlab.Reconstruction) error {
	candidates := make([]CandidateHDF5, len(rec.Estimates))
	for i, e := range rec.Estimates {
		var rejected int8
		if e.Rejected {
			rejected = 1
		}
		candidates[i] = CandidateHDF5{
			combination: int32(e.Combination),
			x:           e.X,
			y:           e.Y,
			chi2:        e.Chi2,
			cov_xx:      e.CovXX,
			cov_xy:      e.CovXY,
			cov_yy:      e.CovYY,
			rejected:    rejected,
		}
	}
	if err := writeArrayToTable(w.CandidateTable, &candidates); err != nil {
		return fmt.Errorf("error writing vertex candidates: %w", err)
	}

	selected := make([]SelectedHDF5, 0, 2)
	for rank, v := range []*advlab.VertexEstimate{rec.Selection.Primary, rec.Selection.Secondary} {
		if v == nil {
			continue
		}
		selected = append(selected, SelectedHDF5{
			rank:        int32(rank),
			combination: int32(v.Combination),
			x:           v.X,
			y:           v.Y,
			chi2:        v.Chi2,
		})
	}
	if err := writeArrayToTable(w.SelectedTable, &selected); err != nil {
		return fmt.Errorf("error writing selected vertices: %w", err)
	}
	return w.WritePeaks(rec.Peaks)
}

// WriteHistogram stores the bin centres and contents of h as a table in the
// Histograms group.
func (w *Writer) WriteHistogram(name string, h *hbook.H1D) error {
	dset, err := createTable(w.HistGroup, name, BinHDF5{}, w.Compression)
	if err != nil {
		return err
	}
	w.extraTables = append(w.extraTables, dset)

	rows := make([]BinHDF5, len(h.Binning.Bins))
	for i, bin := range h.Binning.Bins {
		rows[i] = BinHDF5{center: bin.XMid(), content: bin.SumW()}
	}
	if err := writeArrayToTable(dset, &rows); err != nil {
		return fmt.Errorf("error writing histogram %s: %w", name, err)
	}
	return nil
}

func (w *Writer) WriteHistogram2D(name string, h *hbook.H2D) error {
	dset, err := createTable(w.HistGroup, name, Bin2DHDF5{}, w.Compression)
	if err != nil {
		return err
	}
	w.extraTables = append(w.extraTables, dset)

	rows := make([]Bin2DHDF5, len(h.Binning.Bins))
	for i, bin := range h.Binning.Bins {
		rows[i] = Bin2DHDF5{x: bin.XMid(), y: bin.YMid(), content: bin.SumW()}
	}
	if err := writeArrayToTable(dset, &rows); err != nil {
		return fmt.Errorf("error writing histogram %s: %w", name, err)
	}
	return nil
}

func (w *Writer) WriteCoincidences(name string, pairs []advlab.CoincidencePair) error {
	dset, err := createTable(w.ScanGroup, name, CoincidenceHDF5{}, w.Compression)
	if err != nil {
		return err
	}
	w.extraTables = append(w.extraTables, dset)

	rows := make([]CoincidenceHDF5, len(pairs))
	for i, p := range pairs {
		rows[i] = CoincidenceHDF5{t1: p.T1, e1: p.E1, t2: p.T2, e2: p.E2}
	}
	if err := writeArrayToTable(dset, &rows); err != nil {
		return fmt.Errorf("error writing coincidences %s: %w", name, err)
	}
	return nil
}

func (w *Writer) Close() error {
	var errs []error
	closeDataset := func(d *hdf5.Dataset, name string) {
		if d == nil {
			return
		}
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", name, err))
		}
	}
	closeGroup := func(g *hdf5.Group, name string) {
		if g == nil {
			return
		}
		if err := g.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}

	for i, d := range w.extraTables {
		closeDataset(d, fmt.Sprintf("extra table %d", i))
	}
	closeDataset(w.RatesTable, "rates table")
	closeDataset(w.PeaksTable, "peaks table")
	closeDataset(w.LinesTable, "lines table")
	closeDataset(w.CandidateTable, "candidates table")
	closeDataset(w.SelectedTable, "selected table")
	closeGroup(w.ScanGroup, "scan")
	closeGroup(w.VertexGroup, "vertex")
	closeGroup(w.HistGroup, "histograms")

	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	return errors.Join(errs...)
}
