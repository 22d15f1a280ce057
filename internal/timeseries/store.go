package timeseries

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"funding-radar/internal/domain"
)

const csvHeader = "date,funding_rate"

const lockStripes = 64

// Store persists per-(token, exchange) funding history as append-only CSV
// partitions under a single data directory. One file per partition, named
// <token>-<exchange>.csv, rows ordered by timestamp with no duplicates.
type Store struct {
	dir   string
	locks [lockStripes]sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(token string, ex domain.Exchange) string {
	name := strings.ToUpper(token) + "-" + string(ex) + ".csv"
	return filepath.Join(s.dir, name)
}

func (s *Store) lock(token string, ex domain.Exchange) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(token))
	h.Write([]byte{'-'})
	h.Write([]byte(ex))
	return &s.locks[h.Sum32()%lockStripes]
}

// LastTimestamp returns the newest stored timestamp for the partition, or the
// zero time when the partition does not exist or holds no rows.
func (s *Store) LastTimestamp(token string, ex domain.Exchange) (time.Time, error) {
	mu := s.lock(token, ex)
	mu.Lock()
	defer mu.Unlock()

	points, err := s.readLocked(token, ex)
	if err != nil {
		return time.Time{}, err
	}
	if len(points) == 0 {
		return time.Time{}, nil
	}
	return points[len(points)-1].Time, nil
}

// Read returns the partition's points at or after since, ascending. A missing
// partition reads as empty.
func (s *Store) Read(token string, ex domain.Exchange, since time.Time) ([]domain.TimeSeriesPoint, error) {
	mu := s.lock(token, ex)
	mu.Lock()
	defer mu.Unlock()

	points, err := s.readLocked(token, ex)
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(points), func(i int) bool { return !points[i].Time.Before(since) })
	return points[i:], nil
}

// Append merges new points into the partition. Points whose timestamp is
// already stored are dropped, so re-fetching an overlapping window is safe.
// When every surviving point lands after the current tail the file grows by
// pure append; otherwise the partition is rewritten in order through a temp
// file and rename.
func (s *Store) Append(token string, ex domain.Exchange, points []domain.TimeSeriesPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	mu := s.lock(token, ex)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.readLocked(token, ex)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(existing)+len(points))
	for _, p := range existing {
		seen[p.Time.UnixMilli()] = struct{}{}
	}

	var fresh []domain.TimeSeriesPoint
	for _, p := range points {
		key := p.Time.UnixMilli()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, domain.TimeSeriesPoint{Time: p.Time.UTC(), Rate: p.Rate})
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Time.Before(fresh[j].Time) })

	var tail time.Time
	if len(existing) > 0 {
		tail = existing[len(existing)-1].Time
	}
	if fresh[0].Time.After(tail) {
		return len(fresh), s.appendLocked(token, ex, len(existing) == 0, fresh)
	}

	merged := append(existing, fresh...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	return len(fresh), s.rewriteLocked(token, ex, merged)
}

func (s *Store) readLocked(token string, ex domain.Exchange) ([]domain.TimeSeriesPoint, error) {
	f, err := os.Open(s.path(token, ex))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path(token, ex), err)
	}

	var points []domain.TimeSeriesPoint
	for i, rec := range records {
		if i == 0 && rec[0] == "date" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			continue // skip unparsable rows rather than poison the partition
		}
		rate, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		points = append(points, domain.TimeSeriesPoint{Time: ts.UTC(), Rate: rate})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

func (s *Store) appendLocked(token string, ex domain.Exchange, writeHeader bool, points []domain.TimeSeriesPoint) error {
	f, err := os.OpenFile(s.path(token, ex), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if writeHeader {
		fmt.Fprintln(w, csvHeader)
	}
	writePoints(w, points)
	return w.Flush()
}

func (s *Store) rewriteLocked(token string, ex domain.Exchange, points []domain.TimeSeriesPoint) error {
	target := s.path(token, ex)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, csvHeader)
	writePoints(w, points)
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func writePoints(w *bufio.Writer, points []domain.TimeSeriesPoint) {
	for _, p := range points {
		fmt.Fprintf(w, "%s,%s\n",
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Rate, 'g', -1, 64))
	}
}
