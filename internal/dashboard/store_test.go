package dashboard

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexbill/internal/models"
)

func strPtr(s string) *string { return &s }

func emailView(id string) models.EmailView {
	return models.EmailView{
		ID:      id,
		Subject: "Subject " + id,
		Sender:  "sender@example.com",
	}
}

func TestReplaceEmailsPrunesSelection(t *testing.T) {
	store := NewStore()
	store.ReplaceEmails([]models.EmailView{emailView("a"), emailView("b"), emailView("c")})
	store.ToggleSelection("a", true)
	store.ToggleSelection("b", true)

	store.ReplaceEmails([]models.EmailView{emailView("b"), emailView("d")})

	assert.False(t, store.IsSelected("a"))
	assert.True(t, store.IsSelected("b"))
	assert.False(t, store.IsSelected("d"))
	assert.Equal(t, []string{"b"}, store.SelectedIDs())
}

func TestReplaceEmailsEmptyClearsEverything(t *testing.T) {
	store := NewStore()
	store.ReplaceEmails([]models.EmailView{emailView("a"), emailView("b")})
	store.SelectAll()

	store.ReplaceEmails(nil)

	assert.Empty(t, store.Emails())
	assert.Empty(t, store.SelectedIDs())
	assert.Equal(t, models.Counts{}, store.Counts())
}

func TestToggleSelectionIgnoresUnknownIDs(t *testing.T) {
	store := NewStore()
	store.ReplaceEmails([]models.EmailView{emailView("a")})

	store.ToggleSelection("ghost", true)
	assert.False(t, store.IsSelected("ghost"))

	// Toggling off something never selected is a no-op.
	store.ToggleSelection("a", false)
	assert.Empty(t, store.SelectedIDs())

	store.ToggleSelection("a", true)
	store.ToggleSelection("a", true)
	assert.Equal(t, []string{"a"}, store.SelectedIDs())
}

func TestSelectAllCoversFullCollection(t *testing.T) {
	store := NewStore()
	store.ReplaceEmails([]models.EmailView{emailView("c"), emailView("a"), emailView("b")})

	store.SelectAll()
	assert.Equal(t, []string{"a", "b", "c"}, store.SelectedIDs())
	assert.Equal(t, 3, store.Counts().Selected)

	store.ClearSelection()
	assert.Empty(t, store.SelectedIDs())
	assert.Equal(t, 0, store.Counts().Selected)
}

func TestCountsDeriveFromCollections(t *testing.T) {
	store := NewStore()
	assert.Equal(t, models.Counts{}, store.Counts())

	store.ReplaceEmails([]models.EmailView{emailView("a"), emailView("b")})
	store.ReplaceSummaries([]models.Summary{{ID: 1, EmailID: "a"}})
	store.ToggleSelection("a", true)

	assert.Equal(t, models.Counts{Emails: 2, Summaries: 1, Selected: 1}, store.Counts())

	store.ReplaceSummaries(nil)
	assert.Equal(t, models.Counts{Emails: 2, Summaries: 0, Selected: 1}, store.Counts())
}

func TestUpsertSummaryReplacesByID(t *testing.T) {
	store := NewStore()
	store.ReplaceSummaries([]models.Summary{
		{ID: 1, EmailID: "a", BillingHours: 0.25},
		{ID: 2, EmailID: "b", BillingHours: 0.5},
	})

	store.UpsertSummary(models.Summary{ID: 2, EmailID: "b", BillingHours: 1.5})
	store.UpsertSummary(models.Summary{ID: 3, EmailID: "c", BillingHours: 0.25})

	summaries := store.Summaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, 1.5, summaries[1].BillingHours)
	assert.Equal(t, uint(3), summaries[2].ID)
}

func TestMarkPushedFlipsEmailsAndSummaries(t *testing.T) {
	store := NewStore()
	store.ReplaceEmails([]models.EmailView{emailView("a"), emailView("b")})
	store.ReplaceSummaries([]models.Summary{
		{ID: 1, EmailID: "a"},
		{ID: 2, EmailID: "b"},
	})

	store.MarkPushed([]string{"a", "ghost"})

	assert.True(t, store.Emails()[0].PushedToClio)
	assert.False(t, store.Emails()[1].PushedToClio)
	assert.True(t, store.Summaries()[0].PushedToClio)
	assert.False(t, store.Summaries()[1].PushedToClio)
}

func TestSummaryByIDReturnsCopy(t *testing.T) {
	store := NewStore()
	store.ReplaceSummaries([]models.Summary{{ID: 7, EmailID: "a", Summary: "original"}})

	copy1, ok := store.SummaryByID(7)
	require.True(t, ok)
	copy1.Summary = "edited"

	stored, ok := store.SummaryByID(7)
	require.True(t, ok)
	assert.Equal(t, "original", stored.Summary)

	_, ok = store.SummaryByID(99)
	assert.False(t, ok)
}

// Property: after any replace, the selection is exactly the intersection
// of the prior selection with the new collection's identifiers.
func TestSelectionStaysSubsetOfCollection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	idGen := gen.IntRange(0, 20).Map(func(n int) string {
		return fmt.Sprintf("msg-%d", n)
	})
	idsGen := gen.SliceOf(idGen)

	properties.Property("selection stays within collection after replace", prop.ForAll(
		func(initial, selected, next []string) bool {
			store := NewStore()
			store.ReplaceEmails(views(initial))
			for _, id := range selected {
				store.ToggleSelection(id, true)
			}
			store.ReplaceEmails(views(next))

			known := make(map[string]struct{}, len(next))
			for _, id := range next {
				known[id] = struct{}{}
			}
			for _, id := range store.SelectedIDs() {
				if _, ok := known[id]; !ok {
					return false
				}
			}
			return store.Counts().Selected == len(store.SelectedIDs())
		},
		idsGen, idsGen, idsGen,
	))

	properties.TestingRun(t)
}

func views(ids []string) []models.EmailView {
	out := make([]models.EmailView, 0, len(ids))
	for _, id := range ids {
		out = append(out, emailView(id))
	}
	return out
}
