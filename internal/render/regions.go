package render

import "sync"

// Regions is an in-memory Sink. Only the ids it was created with exist.
type Regions struct {
	mu    sync.Mutex
	texts map[string]string
}

// NewRegions creates a sink holding ids. With no ids every known region
// exists.
func NewRegions(ids ...string) *Regions {
	if len(ids) == 0 {
		ids = AllRegions
	}
	texts := make(map[string]string, len(ids))
	for _, id := range ids {
		texts[id] = ""
	}
	return &Regions{texts: texts}
}

// Region implements Sink.
func (r *Regions) Region(id string) (Region, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.texts[id]; !ok {
		return nil, false
	}
	return regionRef{regions: r, id: id}, true
}

// Text returns the current text of id.
func (r *Regions) Text(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.texts[id]
}

// Snapshot copies every region's text.
func (r *Regions) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.texts))
	for id, text := range r.texts {
		out[id] = text
	}
	return out
}

type regionRef struct {
	regions *Regions
	id      string
}

func (ref regionRef) SetText(text string) {
	ref.regions.mu.Lock()
	defer ref.regions.mu.Unlock()
	ref.regions.texts[ref.id] = text
}
