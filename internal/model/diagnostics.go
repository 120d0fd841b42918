package model

import "sync"

// SourceStats counts outcomes for one external source across a run.
type SourceStats struct {
	Attempts int `json:"attempts"`
	Hits     int `json:"hits"`
	Misses   int `json:"misses"`
	Failures int `json:"failures"`
}

// Diagnostics is the structured observability value returned alongside
// enrichment results. The pipeline never surfaces source failures as
// errors to callers; they are recorded here instead.
type Diagnostics struct {
	mu sync.Mutex

	FoundationSource string                  `json:"foundation_source"` // "socrata" or "fallback"
	Sources          map[string]*SourceStats `json:"sources"`
	MergeFallbacks   int                     `json:"merge_fallbacks"`
	PersistFailures  int                     `json:"persist_failures"`
	Notes            []string                `json:"notes,omitempty"`
}

// NewDiagnostics creates an empty diagnostics value.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		Sources: make(map[string]*SourceStats),
	}
}

func (d *Diagnostics) stats(source string) *SourceStats {
	s, ok := d.Sources[source]
	if !ok {
		s = &SourceStats{}
		d.Sources[source] = s
	}
	return s
}

// RecordHit notes a successful lookup that returned data.
func (d *Diagnostics) RecordHit(source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats(source)
	s.Attempts++
	s.Hits++
}

// RecordMiss notes a successful lookup that returned no match.
func (d *Diagnostics) RecordMiss(source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats(source)
	s.Attempts++
	s.Misses++
}

// RecordFailure notes a lookup that errored or timed out.
func (d *Diagnostics) RecordFailure(source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats(source)
	s.Attempts++
	s.Failures++
}

// RecordMergeFallback notes a business that fell back to its pre-merge
// record because the merge step failed.
func (d *Diagnostics) RecordMergeFallback() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.MergeFallbacks++
}

// RecordPersistFailure notes a store upsert that failed.
func (d *Diagnostics) RecordPersistFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PersistFailures++
}

// AddNote appends a free-form diagnostic note.
func (d *Diagnostics) AddNote(note string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Notes = append(d.Notes, note)
}
