package h5writer

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }

type RateHDF5 struct {
	angle  float64
	offset float64
	count  int32
	rate   float64
}

type PeakHDF5 struct {
	angle     float64
	index     int32
	offset    float64
	amplitude float64
	width     float64
	sigma     float64
}

type CandidateHDF5 struct {
	combination int32
	x           float64
	y           float64
	chi2        float64
	cov_xx      float64
	cov_xy      float64
	cov_yy      float64
	rejected    int8
}

type SelectedHDF5 struct {
	rank        int32
	combination int32
	x           float64
	y           float64
	chi2        float64
}

type LineHDF5 struct {
	combination int32
	angle       float64
	offset      float64
	x_k         float64
	u_k         float64
	degenerate  int8
}

type BinHDF5 struct {
	center  float64
	content float64
}

type Bin2DHDF5 struct {
	x       float64
	y       float64
	content float64
}

type CoincidenceHDF5 struct {
	t1 int64
	e1 int32
	t2 int64
	e2 int32
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{1024}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateTable{TableName: name, Err: err}
		}
	}

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

// writeArrayToTable appends the rows at the end of an extendible table.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	current := dataset.Space()
	dimsGot, _, err := current.SimpleExtentDims()
	current.Close()
	if err != nil {
		return err
	}
	rowsInFile := dimsGot[0]

	if err := dataset.Resize([]uint{rowsInFile + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}
