package advlab

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
)

type CoincidencePair struct {
	T1 int64
	E1 int32
	T2 int64
	E2 int32
}

// FindCoincidences pairs every event of the shorter channel with the closest
// event of the other channel inside [t - window/2, t + window/2]. Both time
// arrays must be ascending. Pairs always carry the first channel in T1/E1.
func FindCoincidences(t1 []int64, e1 []int32, t2 []int64, e2 []int32, window int64) ([]CoincidencePair, error) {
	if window < 0 {
		return nil, fmt.Errorf("negative coincidence window %d", window)
	}
	if len(t1) != len(e1) || len(t2) != len(e2) {
		return nil, fmt.Errorf("time and energy arrays differ in length: %d/%d, %d/%d",
			len(t1), len(e1), len(t2), len(e2))
	}
	pairs := make([]CoincidencePair, 0)
	if len(t1) == 0 || len(t2) == 0 {
		return pairs, nil
	}

	swapped := false
	if len(t1) > len(t2) {
		t1, t2 = t2, t1
		e1, e2 = e2, e1
		swapped = true
	}

	half := window / 2
	for j, t := range t1 {
		i, ok := closestPartner(t2, t, half, j)
		if !ok {
			continue
		}
		if swapped {
			pairs = append(pairs, CoincidencePair{T1: t2[i], E1: e2[i], T2: t, E2: e1[j]})
		} else {
			pairs = append(pairs, CoincidencePair{T1: t, E1: e1[j], T2: t2[i], E2: e2[i]})
		}
	}

	slices.SortStableFunc(pairs, comparePairs)
	return slices.Compact(pairs), nil
}

// closestPartner returns the index of the element of times closest to t within
// half. Ties go to the smallest distance in index from j, then the lower index.
func closestPartner(times []int64, t int64, half int64, j int) (int, bool) {
	lo := sort.Search(len(times), func(i int) bool { return times[i] >= t-half })
	best := -1
	var bestDiff int64
	for i := lo; i < len(times) && times[i] <= t+half; i++ {
		diff := abs(times[i] - t)
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
			continue
		}
		if diff == bestDiff && abs(i-j) < abs(best-j) {
			best = i
		}
	}
	return best, best >= 0
}

func comparePairs(a, b CoincidencePair) int {
	return cmp.Or(
		cmp.Compare(a.T1, b.T1),
		cmp.Compare(a.T2, b.T2),
		cmp.Compare(a.E1, b.E1),
		cmp.Compare(a.E2, b.E2),
	)
}

const coincidenceHeader = "#FIRST CHANNEL\t#SECOND CHANNEL\n\n#time - energy\t#time - energy\n\n"

func WriteCoincidences(w io.Writer, pairs []CoincidencePair) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(coincidenceHeader); err != nil {
		return err
	}
	for _, p := range pairs {
		if _, err := fmt.Fprintf(bw, "%d %d %d %d\n", p.T1, p.E1, p.T2, p.E2); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteCoincidenceFile writes to a temporary file next to path and renames it
// into place, so an interrupted run never leaves a partial cache behind.
func WriteCoincidenceFile(path string, pairs []CoincidencePair) error {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return &ErrOpenFile{Filename: path, Err: err}
	}
	tmp := file.Name()
	if err := WriteCoincidences(file, pairs); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("error writing coincidences to %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error writing coincidences to %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error moving coincidences to %s: %w", path, err)
	}
	return nil
}

// ReadCoincidences parses the 4 column coincidence format. Comment and blank
// lines are ignored, other unparsable lines are counted as malformed.
func ReadCoincidences(r io.Reader) ([]CoincidencePair, int, error) {
	pairs := make([]CoincidencePair, 0)
	malformed := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			malformed++
			continue
		}
		var values [4]float64
		ok := true
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			malformed++
			continue
		}
		pairs = append(pairs, CoincidencePair{
			T1: int64(values[0]),
			E1: int32(values[1]),
			T2: int64(values[2]),
			E2: int32(values[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return pairs, malformed, err
	}
	return pairs, malformed, nil
}

func ReadCoincidenceFile(path string) ([]CoincidencePair, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()
	return ReadCoincidences(file)
}

// FindOrLoadCoincidences reuses the coincidence file at path when it exists,
// otherwise it computes the pairs and writes the file.
func FindOrLoadCoincidences(path string, t1 []int64, e1 []int32, t2 []int64, e2 []int32, window int64) ([]CoincidencePair, error) {
	_, err := os.Stat(path)
	if err == nil {
		if configuration.Verbosity > 0 {
			logger.Info(fmt.Sprintf("Already created %s", path), "coincidences")
		}
		pairs, malformed, err := ReadCoincidenceFile(path)
		if err != nil {
			return nil, err
		}
		if malformed > 0 {
			logger.Warn(fmt.Sprintf("%s: %d malformed lines", path, malformed), "coincidences")
		}
		return pairs, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}

	pairs, err := FindCoincidences(t1, e1, t2, e2, window)
	if err != nil {
		return nil, err
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("%d pairs of coincident events found", len(pairs)), "coincidences")
	}
	if err := WriteCoincidenceFile(path, pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}
