// Package dataset reads and writes trajectory store files and exposes
// shuffled trajectory batches to the trainer.
//
// A store file holds two named dense float64 arrays: dataset_X with dims
// (trajectories, seq_len, 3*grid) and dataset_y with dims (trajectories,
// seq_len, 2*grid). The last axis is laid out in channel blocks:
// [real | imag | potential] for X and [real | imag] for y.
package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"waveprop/internal/field"
)

const (
	storeMagic   = "WPTS"
	storeVersion = 1

	arrayX = "dataset_X"
	arrayY = "dataset_y"
)

// Set is an in-memory trajectory store. X and Y are row-major over
// (trajectory, time, channel-block axis).
type Set struct {
	Trajectories int
	SeqLen       int
	GridSize     int
	X            []float64
	Y            []float64
}

type namedArray struct {
	name string
	dims []int
	data []float64
}

// Write persists the set to path in the store container format.
func Write(path string, set Set) error {
	if err := validateSet(set); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(storeMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(storeVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(2)); err != nil {
		return err
	}

	arrays := []namedArray{
		{name: arrayX, dims: []int{set.Trajectories, set.SeqLen, 3 * set.GridSize}, data: set.X},
		{name: arrayY, dims: []int{set.Trajectories, set.SeqLen, 2 * set.GridSize}, data: set.Y},
	}
	for _, arr := range arrays {
		if err := writeArray(w, arr); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// Read loads a store file, validating the layout contract.
func Read(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(storeMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return Set{}, fmt.Errorf("%w: short header in %s", field.ErrDataFormat, path)
	}
	if string(magic) != storeMagic {
		return Set{}, fmt.Errorf("%w: unknown magic %q in %s", field.ErrDataFormat, magic, path)
	}
	var version, count uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return Set{}, fmt.Errorf("%w: short header in %s", field.ErrDataFormat, path)
	}
	if version != storeVersion {
		return Set{}, fmt.Errorf("%w: unsupported version %d in %s", field.ErrDataFormat, version, path)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Set{}, fmt.Errorf("%w: short header in %s", field.ErrDataFormat, path)
	}

	arrays := make(map[string]namedArray, count)
	for i := 0; i < int(count); i++ {
		arr, err := readArray(r)
		if err != nil {
			return Set{}, fmt.Errorf("%w: array %d in %s: %v", field.ErrDataFormat, i, path, err)
		}
		arrays[arr.name] = arr
	}

	x, ok := arrays[arrayX]
	if !ok {
		return Set{}, fmt.Errorf("%w: %s missing array %s", field.ErrDataFormat, path, arrayX)
	}
	y, ok := arrays[arrayY]
	if !ok {
		return Set{}, fmt.Errorf("%w: %s missing array %s", field.ErrDataFormat, path, arrayY)
	}
	return assemble(path, x, y)
}

func assemble(path string, x, y namedArray) (Set, error) {
	if len(x.dims) != 3 || len(y.dims) != 3 {
		return Set{}, fmt.Errorf("%w: %s arrays must be rank 3, got %d and %d", field.ErrDataFormat, path, len(x.dims), len(y.dims))
	}
	if x.dims[2]%3 != 0 {
		return Set{}, fmt.Errorf("%w: %s %s channel width %d not divisible by 3", field.ErrDataFormat, path, arrayX, x.dims[2])
	}
	if y.dims[2]%2 != 0 {
		return Set{}, fmt.Errorf("%w: %s %s channel width %d not divisible by 2", field.ErrDataFormat, path, arrayY, y.dims[2])
	}
	grid := x.dims[2] / 3
	if y.dims[2]/2 != grid {
		return Set{}, fmt.Errorf("%w: %s grid size disagrees: X implies %d, y implies %d", field.ErrDataFormat, path, grid, y.dims[2]/2)
	}
	if x.dims[0] != y.dims[0] || x.dims[1] != y.dims[1] {
		return Set{}, fmt.Errorf("%w: %s leading dims disagree: X %v, y %v", field.ErrDataFormat, path, x.dims[:2], y.dims[:2])
	}

	return Set{
		Trajectories: x.dims[0],
		SeqLen:       x.dims[1],
		GridSize:     grid,
		X:            x.data,
		Y:            y.data,
	}, nil
}

// InputPlanes extracts trajectory i's three input channel planes, each of
// shape (seq_len, grid), from the block layout of the last axis.
func (s Set) InputPlanes(i int) (re, im, v [][]float64) {
	return s.plane(s.X, i, 3, 0), s.plane(s.X, i, 3, 1), s.plane(s.X, i, 3, 2)
}

// TargetPlanes extracts trajectory i's two target channel planes.
func (s Set) TargetPlanes(i int) (re, im [][]float64) {
	return s.plane(s.Y, i, 2, 0), s.plane(s.Y, i, 2, 1)
}

func (s Set) plane(data []float64, traj, channels, channel int) [][]float64 {
	width := channels * s.GridSize
	out := make([][]float64, s.SeqLen)
	for t := 0; t < s.SeqLen; t++ {
		base := (traj*s.SeqLen+t)*width + channel*s.GridSize
		out[t] = append([]float64(nil), data[base:base+s.GridSize]...)
	}
	return out
}

func validateSet(set Set) error {
	if set.Trajectories < 0 || set.SeqLen <= 0 || set.GridSize <= 0 {
		return fmt.Errorf("%w: dims (%d, %d, %d)", field.ErrDataFormat, set.Trajectories, set.SeqLen, set.GridSize)
	}
	wantX := set.Trajectories * set.SeqLen * 3 * set.GridSize
	wantY := set.Trajectories * set.SeqLen * 2 * set.GridSize
	if len(set.X) != wantX || len(set.Y) != wantY {
		return fmt.Errorf("%w: payload lengths X=%d y=%d, want X=%d y=%d", field.ErrDataFormat, len(set.X), len(set.Y), wantX, wantY)
	}
	return nil
}

func writeArray(w io.Writer, arr namedArray) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(arr.name))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, arr.name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(len(arr.dims))); err != nil {
		return err
	}
	total := 1
	for _, d := range arr.dims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return err
		}
		total *= d
	}
	if total != len(arr.data) {
		return fmt.Errorf("%w: array %s dims %v do not cover %d values", field.ErrDataFormat, arr.name, arr.dims, len(arr.data))
	}
	buf := make([]byte, 8*len(arr.data))
	for i, v := range arr.data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func readArray(r io.Reader) (namedArray, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return namedArray{}, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return namedArray{}, err
	}
	var rank uint8
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return namedArray{}, err
	}
	dims := make([]int, rank)
	total := 1
	for i := range dims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return namedArray{}, err
		}
		dims[i] = int(d)
		total *= int(d)
	}
	buf := make([]byte, 8*total)
	if _, err := io.ReadFull(r, buf); err != nil {
		return namedArray{}, err
	}
	data := make([]float64, total)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return namedArray{name: string(name), dims: dims, data: data}, nil
}
