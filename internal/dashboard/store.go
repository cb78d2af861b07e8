package dashboard

import (
	"sort"

	"lexbill/internal/models"
)

// Store is the single source of truth for dashboard state: connection
// status, the email and summary collections and the selection set. All
// mutation goes through its methods so the derived counts can never
// drift; counts are always recomputed from the collections.
//
// The store is confined to a single goroutine, matching the event-loop
// model of the UI it backs. Fetched collections are replaced wholesale,
// never patched in place across async boundaries.
type Store struct {
	status    models.ConnectionStatus
	emails    []models.EmailView
	summaries []models.Summary
	selected  map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		selected: make(map[string]struct{}),
	}
}

// ReplaceEmails replaces the email collection wholesale. Selection members
// whose identifier is absent from the new list are pruned so the selection
// stays a subset of the known emails. An empty list is valid and clears
// the collection.
func (s *Store) ReplaceEmails(emails []models.EmailView) {
	s.emails = append([]models.EmailView(nil), emails...)

	known := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		known[e.ID] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := known[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// ReplaceSummaries replaces the summary collection wholesale.
func (s *Store) ReplaceSummaries(summaries []models.Summary) {
	s.summaries = append([]models.Summary(nil), summaries...)
}

// SetConnectionStatus records the latest provider connectivity.
func (s *Store) SetConnectionStatus(status models.ConnectionStatus) {
	s.status = status
}

// UpsertSummary replaces the summary with the same identifier, or appends
// the summary when none exists yet.
func (s *Store) UpsertSummary(summary models.Summary) {
	for i := range s.summaries {
		if s.summaries[i].ID == summary.ID {
			s.summaries[i] = summary
			return
		}
	}
	s.summaries = append(s.summaries, summary)
}

// MarkPushed flips the pushed flag on the emails with the given
// identifiers and on the summaries generated from them. Unknown
// identifiers are ignored.
func (s *Store) MarkPushed(emailIDs []string) {
	ids := make(map[string]struct{}, len(emailIDs))
	for _, id := range emailIDs {
		ids[id] = struct{}{}
	}
	for i := range s.emails {
		if _, ok := ids[s.emails[i].ID]; ok {
			s.emails[i].PushedToClio = true
		}
	}
	for i := range s.summaries {
		if _, ok := ids[s.summaries[i].EmailID]; ok {
			s.summaries[i].PushedToClio = true
		}
	}
}

// Emails returns the current email collection. The slice must be treated
// as an immutable snapshot.
func (s *Store) Emails() []models.EmailView {
	return s.emails
}

// Summaries returns the current summary collection.
func (s *Store) Summaries() []models.Summary {
	return s.summaries
}

// SummaryByID returns a copy of the summary with the given identifier.
func (s *Store) SummaryByID(id uint) (models.Summary, bool) {
	for _, summary := range s.summaries {
		if summary.ID == id {
			return summary, true
		}
	}
	return models.Summary{}, false
}

// Status returns the last recorded connection status.
func (s *Store) Status() models.ConnectionStatus {
	return s.status
}

// Counts derives the collection sizes. There is no counter state to keep
// in sync; the sizes come straight from the collections.
func (s *Store) Counts() models.Counts {
	return models.Counts{
		Emails:    len(s.emails),
		Summaries: len(s.summaries),
		Selected:  len(s.selected),
	}
}

// ToggleSelection adds or removes one email identifier from the selection.
// Toggling an absent id off, or a present id on, is a no-op; identifiers
// not present in the email collection are ignored.
func (s *Store) ToggleSelection(id string, selected bool) {
	if !selected {
		delete(s.selected, id)
		return
	}
	for _, e := range s.emails {
		if e.ID == id {
			s.selected[id] = struct{}{}
			return
		}
	}
}

// SelectAll sets the selection to exactly the identifiers of the full
// email collection. Select-all deliberately operates over the unfiltered
// collection, not the currently visible subset.
func (s *Store) SelectAll() {
	s.selected = make(map[string]struct{}, len(s.emails))
	for _, e := range s.emails {
		s.selected[e.ID] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() {
	s.selected = make(map[string]struct{})
}

// IsSelected reports whether an email identifier is in the selection.
func (s *Store) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectedIDs returns the selected identifiers in sorted order.
func (s *Store) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
