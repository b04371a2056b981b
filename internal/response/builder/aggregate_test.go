package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrelay/internal/verification"
)

func TestSummarize_Empty(t *testing.T) {
	docs := Summarize(nil)

	assert.Equal(t, 0, docs.TotalCount)
	assert.Empty(t, docs.ByYear)
	assert.Empty(t, docs.ByType)
	assert.NotNil(t, docs.AvailableForms, "available_forms must serialize as [], not null")
	assert.Empty(t, docs.AvailableForms)
	assert.Empty(t, docs.IncomeSummary)
}

func TestSummarize_GroupsByYearAndType(t *testing.T) {
	transcripts := []verification.Transcript{
		{
			TaxYear: "2022",
			Forms: []verification.Form{
				{Type: "W-2", Employer: verification.Ptr("Acme Corp")},
				{Type: "1099-INT", Payer: verification.Ptr("First Bank")},
			},
		},
		{
			TaxYear: "2023",
			Forms: []verification.Form{
				{Type: "W-2", Employer: verification.Ptr("Acme Corp")},
			},
		},
	}

	docs := Summarize(transcripts)

	assert.Equal(t, 2, docs.TotalCount)
	assert.Len(t, docs.ByYear["2022"], 1)
	assert.Len(t, docs.ByYear["2023"], 1)

	require.Len(t, docs.ByType["W-2"], 2)
	assert.Equal(t, "2022", docs.ByType["W-2"][0].Year)
	assert.Equal(t, "2023", docs.ByType["W-2"][1].Year)
	require.Len(t, docs.ByType["1099-INT"], 1)
	assert.Equal(t, "2022", docs.ByType["1099-INT"][0].Year)
}

func TestSummarize_UnknownYearBucket(t *testing.T) {
	transcripts := []verification.Transcript{
		{TaxYear: "", Forms: []verification.Form{{Type: "1040"}}},
	}

	docs := Summarize(transcripts)

	require.Len(t, docs.ByYear["unknown"], 1)
	require.Len(t, docs.ByType["1040"], 1)
	assert.Equal(t, "unknown", docs.ByType["1040"][0].Year)
}

func TestSummarize_AvailableFormsFirstSeenOrder(t *testing.T) {
	transcripts := []verification.Transcript{
		{TaxYear: "2021", Forms: []verification.Form{{Type: "1099-MISC"}, {Type: "W-2"}}},
		{TaxYear: "2022", Forms: []verification.Form{{Type: "W-2"}, {Type: "1040"}}},
		{TaxYear: "2023", Forms: []verification.Form{{Type: "1099-MISC"}}},
	}

	docs := Summarize(transcripts)

	assert.Equal(t, []string{"1099-MISC", "W-2", "1040"}, docs.AvailableForms)
}

func TestSummarize_IncomeSummaryLastTranscriptWins(t *testing.T) {
	transcripts := []verification.Transcript{
		{
			TaxYear:    "2022",
			IncomeData: &verification.IncomeData{WagesSalaries: verification.Ptr(50000.0)},
		},
		{
			TaxYear: "2022",
			IncomeData: &verification.IncomeData{
				WagesSalaries:       verification.Ptr(52000.0),
				AdjustedGrossIncome: verification.Ptr(61000.0),
			},
		},
	}

	docs := Summarize(transcripts)

	require.Contains(t, docs.IncomeSummary, "2022")
	income := docs.IncomeSummary["2022"]
	require.NotNil(t, income.WagesSalaries)
	assert.Equal(t, 52000.0, *income.WagesSalaries)
	require.NotNil(t, income.AdjustedGrossIncome)
	assert.Equal(t, 61000.0, *income.AdjustedGrossIncome)
}

func TestSummarize_NilIncomeDataSkipped(t *testing.T) {
	transcripts := []verification.Transcript{
		{TaxYear: "2022", IncomeData: &verification.IncomeData{TotalIncome: verification.Ptr(80000.0)}},
		{TaxYear: "2022", IncomeData: nil},
	}

	docs := Summarize(transcripts)

	require.Contains(t, docs.IncomeSummary, "2022")
	require.NotNil(t, docs.IncomeSummary["2022"].TotalIncome)
	assert.Equal(t, 80000.0, *docs.IncomeSummary["2022"].TotalIncome)
}
