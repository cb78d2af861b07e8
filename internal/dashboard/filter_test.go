package dashboard

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexbill/internal/models"
)

func sampleEmails() []models.EmailView {
	hours := 0.5
	return []models.EmailView{
		{ID: "a", Subject: "Contract review", Sender: "alice@firm.com", Body: "please review the draft"},
		{ID: "b", Subject: "Deposition prep", Sender: "bob@client.com", Body: "scheduling for Tuesday",
			Summary: strPtr("Prep call"), BillingHours: &hours},
		{ID: "c", Subject: "Invoice question", Sender: "carol@client.com", Body: "about last month",
			Summary: strPtr("Billing question"), BillingHours: &hours, PushedToClio: true},
	}
}

func sampleSummaries() []models.Summary {
	return []models.Summary{
		{ID: 1, EmailID: "b", Subject: "Deposition prep", Summary: "Prep call", BillingDescription: "Call with client"},
		{ID: 2, EmailID: "c", Subject: "Invoice question", Summary: "Billing question", BillingDescription: "Reviewed invoice", PushedToClio: true},
	}
}

func TestParseEmailFilter(t *testing.T) {
	for _, name := range []string{"all", "unsummarized", "summarized", "unpushed"} {
		f, err := ParseEmailFilter(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(f))
	}
	_, err := ParseEmailFilter("bogus")
	assert.Error(t, err)
	_, err = ParseEmailFilter("")
	assert.Error(t, err)
}

func TestParseSummaryFilter(t *testing.T) {
	for _, name := range []string{"all", "unpushed", "pushed"} {
		f, err := ParseSummaryFilter(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(f))
	}
	_, err := ParseSummaryFilter("summarized")
	assert.Error(t, err)
}

func TestVisibleEmailsFilterModes(t *testing.T) {
	emails := sampleEmails()

	tests := []struct {
		filter EmailFilter
		want   []string
	}{
		{EmailFilterAll, []string{"a", "b", "c"}},
		{EmailFilterUnsummarized, []string{"a"}},
		{EmailFilterSummarized, []string{"b", "c"}},
		{EmailFilterUnpushed, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := VisibleEmails(emails, tt.filter, "")
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestVisibleEmailsEmptySummaryCountsAsUnsummarized(t *testing.T) {
	emails := []models.EmailView{
		{ID: "a", Summary: nil},
		{ID: "b", Summary: strPtr("")},
		{ID: "c", Summary: strPtr("done")},
	}

	got := VisibleEmails(emails, EmailFilterUnsummarized, "")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestVisibleEmailsSearchIsCaseInsensitive(t *testing.T) {
	emails := sampleEmails()

	got := VisibleEmails(emails, EmailFilterAll, "CONTRACT")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	// Query matches sender and body too.
	assert.Len(t, VisibleEmails(emails, EmailFilterAll, "client.com"), 2)
	assert.Len(t, VisibleEmails(emails, EmailFilterAll, "tuesday"), 1)
	assert.Empty(t, VisibleEmails(emails, EmailFilterAll, "nonexistent"))
}

func TestVisibleEmailsComposesFilterAndSearch(t *testing.T) {
	emails := sampleEmails()

	got := VisibleEmails(emails, EmailFilterUnpushed, "client.com")
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestVisibleEmailsDoesNotMutateInput(t *testing.T) {
	emails := sampleEmails()
	before := make([]models.EmailView, len(emails))
	copy(before, emails)

	VisibleEmails(emails, EmailFilterSummarized, "invoice")
	assert.Equal(t, before, emails)
}

func TestVisibleSummariesFilterModes(t *testing.T) {
	summaries := sampleSummaries()

	assert.Len(t, VisibleSummaries(summaries, SummaryFilterAll, ""), 2)

	unpushed := VisibleSummaries(summaries, SummaryFilterUnpushed, "")
	require.Len(t, unpushed, 1)
	assert.Equal(t, uint(1), unpushed[0].ID)

	pushed := VisibleSummaries(summaries, SummaryFilterPushed, "")
	require.Len(t, pushed, 1)
	assert.Equal(t, uint(2), pushed[0].ID)
}

func TestVisibleSummariesSearchFields(t *testing.T) {
	summaries := sampleSummaries()

	// Subject, summary text and billing description are all searchable.
	assert.Len(t, VisibleSummaries(summaries, SummaryFilterAll, "deposition"), 1)
	assert.Len(t, VisibleSummaries(summaries, SummaryFilterAll, "billing question"), 1)
	assert.Len(t, VisibleSummaries(summaries, SummaryFilterAll, "reviewed invoice"), 1)
	assert.Empty(t, VisibleSummaries(summaries, SummaryFilterAll, "zzz"))
}

func genEmailView() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.AlphaString(),
		gen.Bool(),
		gen.Bool(),
	).Map(func(vals []interface{}) models.EmailView {
		e := models.EmailView{
			ID:           vals[0].(string),
			Subject:      vals[1].(string),
			PushedToClio: vals[3].(bool),
		}
		if vals[2].(bool) {
			e.Summary = strPtr("s")
		}
		return e
	})
}

func TestVisibleEmailsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	emailsGen := gen.SliceOf(genEmailView())
	filterGen := gen.OneConstOf(
		EmailFilterAll, EmailFilterUnsummarized, EmailFilterSummarized, EmailFilterUnpushed,
	)

	properties.Property("filtering is idempotent", prop.ForAll(
		func(emails []models.EmailView, filter EmailFilter, query string) bool {
			once := VisibleEmails(emails, filter, query)
			twice := VisibleEmails(once, filter, query)
			return assert.ObjectsAreEqual(once, twice)
		},
		emailsGen, filterGen, gen.AlphaString(),
	))

	properties.Property("output preserves input order", prop.ForAll(
		func(emails []models.EmailView, filter EmailFilter) bool {
			got := VisibleEmails(emails, filter, "")
			i := 0
			for _, e := range emails {
				if i < len(got) && got[i] == e {
					i++
				}
			}
			return i == len(got)
		},
		emailsGen, filterGen,
	))

	properties.Property("summarized and unsummarized partition the collection", prop.ForAll(
		func(emails []models.EmailView) bool {
			summarized := VisibleEmails(emails, EmailFilterSummarized, "")
			unsummarized := VisibleEmails(emails, EmailFilterUnsummarized, "")
			return len(summarized)+len(unsummarized) == len(emails)
		},
		emailsGen,
	))

	properties.TestingRun(t)
}
