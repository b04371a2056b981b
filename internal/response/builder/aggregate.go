package builder

import (
	"taxrelay/internal/response/schema"
	"taxrelay/internal/verification"
)

// unknownYear buckets transcripts whose parser could not determine a year.
const unknownYear = "unknown"

// Summarize derives the documents section from a transcript list in a
// single pass over the input order. It is deterministic and allocates
// fresh maps on every call; consumers treat by_year/by_type as unordered.
func Summarize(transcripts []verification.Transcript) schema.DocumentsSection {
	docs := schema.DocumentsSection{
		TotalCount:     len(transcripts),
		ByYear:         make(map[string][]verification.Transcript),
		ByType:         make(map[string][]schema.FormRecord),
		AvailableForms: []string{},
		IncomeSummary:  make(map[string]verification.IncomeData),
	}

	seenForms := make(map[string]struct{})

	for _, t := range transcripts {
		year := t.TaxYear
		if year == "" {
			year = unknownYear
		}

		docs.ByYear[year] = append(docs.ByYear[year], t)

		for _, form := range t.Forms {
			docs.ByType[form.Type] = append(docs.ByType[form.Type], schema.FormRecord{
				Year: year,
				Form: form,
			})
			if _, ok := seenForms[form.Type]; !ok {
				seenForms[form.Type] = struct{}{}
				docs.AvailableForms = append(docs.AvailableForms, form.Type)
			}
		}

		// Last transcript for a year wins: later transcripts carry more
		// complete data.
		if t.IncomeData != nil {
			docs.IncomeSummary[year] = *t.IncomeData
		}
	}

	return docs
}
