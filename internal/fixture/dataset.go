// Package fixture serves the domain services from an in-memory dataset.
package fixture

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
	"projectdesk/internal/metrics"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the on-disk shape of a dataset. Notes are listed flat and grouped
// by project on load, keeping their listed order.
type Seed struct {
	Employees []domain.Employee    `yaml:"employees"`
	Projects  []domain.Project     `yaml:"projects"`
	Todos     []domain.Todo        `yaml:"todos"`
	Notes     []domain.ProjectNote `yaml:"notes"`
}

// DefaultSeed returns a fresh copy of the embedded dataset.
func DefaultSeed() Seed {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded seed: %v", err))
	}
	return seed
}

// ParseSeed decodes a YAML seed.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("invalid seed yaml: %w", err)
	}
	return seed, nil
}

// LoadSeedFile reads a YAML seed from path, or the embedded seed when path is
// empty.
func LoadSeedFile(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	return ParseSeed(data)
}

func (s Seed) clone() Seed {
	return Seed{
		Employees: listutil.Clone(s.Employees, nil),
		Projects:  listutil.Clone(s.Projects, domain.Project.Clone),
		Todos:     listutil.Clone(s.Todos, domain.Todo.Clone),
		Notes:     listutil.Clone(s.Notes, nil),
	}
}

// Dataset owns the mutable fixture state. Mutations from concurrent callers
// are last-write-wins; the mutex only keeps the collections well formed.
type Dataset struct {
	Now func() time.Time

	mu        sync.Mutex
	seed      Seed
	employees []domain.Employee
	projects  []domain.Project
	todos     []domain.Todo
	notes     map[int64][]domain.ProjectNote
	lastID    int64
}

// NewDataset returns a dataset initialized from seed.
func NewDataset(seed Seed) *Dataset {
	d := &Dataset{Now: time.Now}
	d.Initialize(seed)
	return d
}

// Initialize replaces the seed and resets the working state to it.
func (d *Dataset) Initialize(seed Seed) {
	d.mu.Lock()
	d.seed = seed.clone()
	d.mu.Unlock()
	d.Reset()
}

// Reset restores a deep copy of the seed, discarding every mutation.
func (d *Dataset) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.seed.clone()
	d.employees = s.Employees
	d.projects = s.Projects
	d.todos = s.Todos
	d.notes = map[int64][]domain.ProjectNote{}
	for _, n := range s.Notes {
		d.notes[n.ProjectID] = append(d.notes[n.ProjectID], n)
	}
	d.lastID = maxSeedID(s)
}

// Counts returns the size of each collection.
func (d *Dataset) Counts() (employees, projects, todos, notes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, group := range d.notes {
		notes += len(group)
	}
	return len(d.employees), len(d.projects), len(d.todos), notes
}

func (d *Dataset) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

// nextID hands out ids above every id in the seed. Callers hold d.mu.
func (d *Dataset) nextID() int64 {
	d.lastID++
	return d.lastID
}

// employeeRef resolves an id to its display snapshot. Callers hold d.mu.
func (d *Dataset) employeeRef(id int64) domain.EmployeeRef {
	if e, ok := listutil.FindByID(d.employees, id); ok {
		return e.Ref()
	}
	return domain.EmployeeRef{ID: id, Name: domain.UnknownName}
}

func maxSeedID(s Seed) int64 {
	top := listutil.MaxID(s.Employees)
	for _, v := range []int64{listutil.MaxID(s.Projects), listutil.MaxID(s.Todos), listutil.MaxID(s.Notes)} {
		if v > top {
			top = v
		}
	}
	for _, t := range s.Todos {
		for _, a := range t.AssignmentHistory {
			if a.ID > top {
				top = a.ID
			}
		}
	}
	return top
}

// Options tune the simulated backend.
type Options struct {
	Latency       time.Duration
	SearchLatency time.Duration
	Metrics       metrics.Recorder
}

func (o Options) recorder() metrics.Recorder {
	if o.Metrics == nil {
		return metrics.Nop{}
	}
	return o.Metrics
}

// Delay waits for d or until ctx is done, whichever comes first.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
