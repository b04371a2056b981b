package partner

import (
	"strings"
	"time"

	"taxrelay/internal/response/schema"
	"taxrelay/internal/verification"
)

// ConductivPayload is the flattened summary shape the Conductiv integration
// consumes in place of the canonical response.
type ConductivPayload struct {
	RequestID            string                             `json:"request_id"`
	Status               string                             `json:"status"`
	TranscriptsAvailable bool                               `json:"transcripts_available"`
	StatusURL            *string                            `json:"status_url"`
	JSONURL              *string                            `json:"json_url"`
	HTMLURLs             []string                           `json:"html_urls"`
	TaxpayerName         *string                            `json:"taxpayer_name"`
	TaxYears             []string                           `json:"tax_years"`
	TaxForms             []string                           `json:"tax_forms"`
	IncomeVerification   map[string]verification.IncomeData `json:"income_verification"`
	FormDocuments        []FormDocument                     `json:"form_documents"`
	VerificationComplete bool                               `json:"verification_complete"`
	Timestamp            time.Time                          `json:"timestamp"`
}

// FormDocument counts the occurrences of one form type across transcripts.
type FormDocument struct {
	FormType string `json:"form_type"`
	Count    int    `json:"count"`
}

// ConductivTransform flattens any canonical variant into a ConductivPayload.
// Relative endpoint paths are prefixed with baseURL so the partner receives
// absolute URLs.
func ConductivTransform(baseURL string) Transform {
	base := strings.TrimRight(baseURL, "/")
	return func(resp schema.Response) (any, error) {
		v := viewOf(resp)
		env := resp.Env()
		completed := v.status == string(verification.StatusCompleted)

		payload := ConductivPayload{
			RequestID:            env.RequestID,
			Status:               v.status,
			TranscriptsAvailable: completed,
			StatusURL:            absolute(base, v.urls.StatusEndpoint),
			JSONURL:              absolute(base, v.urls.JSONEndpoint),
			HTMLURLs:             v.urls.HTMLFiles,
			TaxYears:             []string{},
			TaxForms:             []string{},
			IncomeVerification:   v.documents.IncomeSummary,
			FormDocuments:        formDocuments(v.documents),
			VerificationComplete: completed,
			Timestamp:            env.Timestamp,
		}
		if payload.HTMLURLs == nil {
			payload.HTMLURLs = []string{}
		}
		if payload.IncomeVerification == nil {
			payload.IncomeVerification = map[string]verification.IncomeData{}
		}
		if v.taxpayer != nil {
			payload.TaxpayerName = v.taxpayer.Name
			if v.taxpayer.TaxYears != nil {
				payload.TaxYears = v.taxpayer.TaxYears
			}
			if v.taxpayer.TaxForms != nil {
				payload.TaxForms = v.taxpayer.TaxForms
			}
		}
		return payload, nil
	}
}

// formDocuments summarizes by_type into per-form counts, in the first-seen
// order recorded by available_forms.
func formDocuments(docs schema.DocumentsSection) []FormDocument {
	out := make([]FormDocument, 0, len(docs.AvailableForms))
	for _, formType := range docs.AvailableForms {
		out = append(out, FormDocument{
			FormType: formType,
			Count:    len(docs.ByType[formType]),
		})
	}
	return out
}

func absolute(base string, path *string) *string {
	if path == nil {
		return nil
	}
	u := base + *path
	return &u
}

// responseView projects the fields shared unevenly across the canonical
// variants. Document responses carry no status; that reads as empty here.
type responseView struct {
	status    string
	taxpayer  *verification.Taxpayer
	documents schema.DocumentsSection
	urls      schema.DocumentURLs
}

func viewOf(resp schema.Response) responseView {
	switch r := resp.(type) {
	case *schema.StatusResponse:
		return responseView{
			status:    string(r.Status),
			taxpayer:  r.Taxpayer,
			documents: r.Documents,
			urls:      r.URLs,
		}
	case *schema.WebhookResponse:
		return responseView{
			status:    string(r.Status),
			taxpayer:  r.Taxpayer,
			documents: r.Documents,
			urls:      r.URLs,
		}
	case *schema.DocumentResponse:
		return responseView{
			taxpayer:  r.Taxpayer,
			documents: r.Documents,
			urls:      r.URLs,
		}
	default:
		return responseView{}
	}
}
