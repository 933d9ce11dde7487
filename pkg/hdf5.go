package decoder

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

type EventDataHDF5 struct {
	evt_number   uint32
	trigger_id   uint16
	multiplicity uint16
	timestamp    uint64
	first_hit    uint64
}

type HitHDF5 struct {
	evt_number uint32
	channel    uint16
	adc        uint16
	timestamp  uint64
	energy     float64
}

type RunInfoHDF5 struct {
	declared_events uint64
	decoded_events  uint64
	metadata_blocks uint32
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compressionLevel int) (*hdf5.Dataset, error) {
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

	chunks := []uint{32768}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if err := plist.SetDeflate(compressionLevel); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer dtype.Close()

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

// createFixedArray creates a dataset with fixed dims and writes data, a
// pointer to a slice, into it.
func createFixedArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, data interface{}) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return &ErrCreateTable{TableName: name, Err: err}
	}
	defer space.Close()

	dset, err := group.CreateDataset(name, dtype, space)
	if err != nil {
		return &ErrCreateTable{TableName: name, Err: err}
	}
	if data != nil {
		if err := dset.Write(data); err != nil {
			dset.Close()
			return fmt.Errorf("error writing %s: %w", name, err)
		}
	}
	return dset.Close()
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, rowsInTable int) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array, rowsInTable)
}

// writeArrayToTable appends data at the end of a table holding rowsInTable rows.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInTable int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	rows := uint(rowsInTable)
	newsize := []uint{rows + length}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rows}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	return dataset.WriteSubset(data, dataspace, filespace)
}
