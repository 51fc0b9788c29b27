package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TaskMode selects how the demo host drives a simulated task.
type TaskMode string

const (
	// ModeTick runs the task as a tracked system, one step per tick.
	ModeTick TaskMode = "tick"
	// ModeBackground runs the task on its own goroutine and reports
	// through the progress channel.
	ModeBackground TaskMode = "background"
	// ModeEntity spawns an entity carrying a progress component.
	ModeEntity TaskMode = "entity"
)

// Transition moves the host from From to To once tracked work is done.
type Transition struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Task is one simulated unit of loading work.
type Task struct {
	Name         string        `yaml:"name"`
	State        string        `yaml:"state"`
	Mode         TaskMode      `yaml:"mode"`
	Steps        uint32        `yaml:"steps"`
	Interval     time.Duration `yaml:"interval"` // background only
	Hidden       bool          `yaml:"hidden"`
	StopWhenDone bool          `yaml:"stop_when_done"` // tick only
}

// Asset is a simulated asset that finishes loading after LoadAfter.
type Asset struct {
	ID        string        `yaml:"id"`
	State     string        `yaml:"state"`
	LoadAfter time.Duration `yaml:"load_after"`
	Fail      bool          `yaml:"fail"`
}

type planFile struct {
	Initial     string       `yaml:"initial"`
	Transitions []Transition `yaml:"transitions"`
	Tasks       []Task       `yaml:"tasks"`
	Assets      []Asset      `yaml:"assets"`
}

// Plan is a validated load plan indexed by state.
type Plan struct {
	Initial     string
	Transitions []Transition

	tasks  map[string][]Task
	assets map[string][]Asset
}

// TasksFor returns the tasks tracked in state, in file order.
func (p *Plan) TasksFor(state string) []Task {
	return p.tasks[state]
}

// AssetsFor returns the assets tracked in state, in file order.
func (p *Plan) AssetsFor(state string) []Asset {
	return p.assets[state]
}

// TaskCount returns the number of tasks across all states.
func (p *Plan) TaskCount() int {
	n := 0
	for _, ts := range p.tasks {
		n += len(ts)
	}
	return n
}

// AssetCount returns the number of assets across all states.
func (p *Plan) AssetCount() int {
	n := 0
	for _, as := range p.assets {
		n += len(as)
	}
	return n
}

// LoadPlan loads a load plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(raw)
}

// ParsePlan parses and validates a load plan.
func ParsePlan(raw []byte) (*Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if f.Initial == "" {
		return nil, fmt.Errorf("plan: initial state is required")
	}

	tracked := make(map[string]bool, len(f.Transitions))
	for _, tr := range f.Transitions {
		if tr.From == "" || tr.To == "" {
			return nil, fmt.Errorf("plan: transition needs from and to")
		}
		if tracked[tr.From] {
			return nil, fmt.Errorf("plan: duplicate transition from %q", tr.From)
		}
		tracked[tr.From] = true
	}

	p := &Plan{
		Initial:     f.Initial,
		Transitions: f.Transitions,
		tasks:       make(map[string][]Task),
		assets:      make(map[string][]Asset),
	}
	for i, t := range f.Tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("plan: task %d has no name", i)
		}
		if !tracked[t.State] {
			return nil, fmt.Errorf("plan: task %q: state %q has no transition", t.Name, t.State)
		}
		switch t.Mode {
		case "":
			t.Mode = ModeTick
		case ModeTick, ModeBackground, ModeEntity:
		default:
			return nil, fmt.Errorf("plan: task %q: unknown mode %q", t.Name, t.Mode)
		}
		if t.Steps == 0 {
			t.Steps = 1
		}
		if t.Mode == ModeBackground && t.Interval <= 0 {
			t.Interval = 10 * time.Millisecond
		}
		p.tasks[t.State] = append(p.tasks[t.State], t)
	}
	for _, a := range f.Assets {
		if a.ID == "" {
			return nil, fmt.Errorf("plan: asset without id")
		}
		if !tracked[a.State] {
			return nil, fmt.Errorf("plan: asset %q: state %q has no transition", a.ID, a.State)
		}
		p.assets[a.State] = append(p.assets[a.State], a)
	}
	return p, nil
}
