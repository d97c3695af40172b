package speedscope

import (
	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/signature"
)

const (
	Schema = "https://www.speedscope.app/file-format-schema.json"

	ValueUnitNanoseconds ValueUnit = "nanoseconds"

	EventTypeOpenFrame  EventType = "O"
	EventTypeCloseFrame EventType = "C"

	ProfileTypeEvented ProfileType = "evented"
)

type (
	Frame struct {
		File string `json:"file,omitempty"`
		Line int    `json:"line,omitempty"`
		Name string `json:"name"`
	}

	Event struct {
		Type  EventType `json:"type"`
		Frame int       `json:"frame"`
		At    uint64    `json:"at"`
	}

	EventedProfile struct {
		EndValue   uint64      `json:"endValue"`
		Events     []Event     `json:"events"`
		Name       string      `json:"name"`
		StartValue uint64      `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	EventType   string
	ProfileType string
	ValueUnit   string

	Output struct {
		Schema             string           `json:"$schema"`
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		Exporter           string           `json:"exporter,omitempty"`
		Name               string           `json:"name"`
		Profiles           []EventedProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
	}
)

// FromCallTree converts call trees to a speedscope document with one evented
// profile per tree. Frames are shared across profiles and deduplicated by
// signature. Event times are relative to the start of their tree.
func FromCallTree(name string, roots ...*calltree.Node) Output {
	o := Output{
		Schema:   Schema,
		Exporter: "callprof",
		Name:     name,
		Profiles: make([]EventedProfile, 0, len(roots)),
		Shared:   SharedData{Frames: []Frame{}},
	}
	frames := make(map[string]int)
	for _, root := range roots {
		if root == nil {
			continue
		}
		p := EventedProfile{
			Events: make([]Event, 0, 2*root.Count()),
			Name:   root.Signature(),
			Type:   ProfileTypeEvented,
			Unit:   ValueUnitNanoseconds,
		}
		p.EndValue = addEvents(&p, root, root.StartNS, &o.Shared, frames)
		o.Profiles = append(o.Profiles, p)
	}
	return o
}

// addEvents appends the events of n and its children and returns the time n
// was closed at. Frames still open close with their last child.
func addEvents(p *EventedProfile, n *calltree.Node, originNS uint64, shared *SharedData, frames map[string]int) uint64 {
	i, exists := frames[n.Signature()]
	if !exists {
		i = len(shared.Frames)
		frames[n.Signature()] = i
		shared.Frames = append(shared.Frames, newFrame(n))
	}
	start := relative(n.StartNS, originNS)
	p.Events = append(p.Events, Event{Type: EventTypeOpenFrame, Frame: i, At: start})
	end := start + n.DurationNS
	for _, c := range n.Children() {
		end = max(end, addEvents(p, c, originNS, shared, frames))
	}
	p.Events = append(p.Events, Event{Type: EventTypeCloseFrame, Frame: i, At: end})
	return end
}

func newFrame(n *calltree.Node) Frame {
	f := Frame{Name: n.DisplayName()}
	if file, line, ok := signature.TemplateLocation(n.Signature()); ok {
		f.File = file
		f.Line = line
	}
	return f
}

func relative(ts, originNS uint64) uint64 {
	if ts < originNS {
		return 0
	}
	return ts - originNS
}
