package advlab

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Event struct {
	Channel       int
	Timestamp     int64 // ns
	EnergyChannel int32
}

// EventLog holds the events of one acquisition file, ascending in time.
type EventLog struct {
	Events  []Event
	Skipped int
}

// Channel splits out the timestamps and energies of one channel.
func (l EventLog) Channel(ch int) ([]int64, []int32) {
	times := make([]int64, 0, len(l.Events)/2)
	energies := make([]int32, 0, len(l.Events)/2)
	for _, evt := range l.Events {
		if evt.Channel == ch {
			times = append(times, evt.Timestamp)
			energies = append(energies, evt.EnergyChannel)
		}
	}
	return times, energies
}

const eventColumns = 5

// ParseEventLog reads the CAEN ASCII dump: channel, time tag, energy and two
// unused columns per line. Channel, time tag and energy must be integers; time
// tags are multiplied by timestampScale to get ns. Malformed lines are
// counted, not returned as errors.
func ParseEventLog(r io.Reader, timestampScale int64) (EventLog, error) {
	log := EventLog{}
	if timestampScale <= 0 {
		return log, fmt.Errorf("timestamp scale must be positive, got %d", timestampScale)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		evt, ok := parseEventLine(line, timestampScale)
		if !ok {
			log.Skipped++
			continue
		}
		log.Events = append(log.Events, evt)
	}
	if err := scanner.Err(); err != nil {
		return log, fmt.Errorf("error reading event log: %w", err)
	}

	sort.SliceStable(log.Events, func(i, j int) bool {
		return log.Events[i].Timestamp < log.Events[j].Timestamp
	})
	return log, nil
}

func parseEventLine(line string, timestampScale int64) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) != eventColumns {
		return Event{}, false
	}
	channel, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return Event{}, false
	}
	tag, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || tag < 0 || tag > math.MaxInt64/timestampScale {
		return Event{}, false
	}
	energy, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return Event{}, false
	}
	for _, field := range fields[3:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Event{}, false
		}
	}
	return Event{
		Channel:       int(channel),
		Timestamp:     tag * timestampScale,
		EnergyChannel: int32(energy),
	}, true
}

func ReadEventLog(path string, timestampScale int64) (EventLog, error) {
	file, err := os.Open(path)
	if err != nil {
		return EventLog{}, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	evtLog, err := ParseEventLog(file, timestampScale)
	if err != nil {
		return evtLog, err
	}
	if evtLog.Skipped > 0 && configuration.Verbosity > 0 {
		message := fmt.Sprintf("%s: skipped %d malformed lines", path, evtLog.Skipped)
		logger.Warn(message, "parser")
	}
	return evtLog, nil
}

// ParseScanName extracts angle and raw offset from names like
// scan_40_12.5.dat.
func ParseScanName(path string) (float64, float64, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("scan file name %q does not match scan_<angle>_<offset>", base)
	}
	angle, err := strconv.ParseFloat(parts[len(parts)-2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad angle in %q: %w", base, err)
	}
	offset, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad offset in %q: %w", base, err)
	}
	return angle, offset, nil
}
