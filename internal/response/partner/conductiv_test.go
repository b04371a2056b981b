package partner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrelay/internal/response/builder"
	"taxrelay/internal/verification"
)

func TestConductivTransform_StatusResponse(t *testing.T) {
	reg := NewRegistry(testBaseURL)
	resp := builder.New().BuildStatus(completedRecord())

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)
	payload, ok := out.(ConductivPayload)
	require.True(t, ok)

	assert.Equal(t, "req_abc", payload.RequestID)
	assert.Equal(t, "completed", payload.Status)
	assert.True(t, payload.VerificationComplete)
	assert.True(t, payload.TranscriptsAvailable)

	require.NotNil(t, payload.StatusURL)
	assert.Equal(t, testBaseURL+"/api/status/req_abc", *payload.StatusURL)
	require.NotNil(t, payload.JSONURL)
	assert.Equal(t, testBaseURL+"/api/transcripts/req_abc/json", *payload.JSONURL)
	assert.Equal(t, []string{"https://cdn.example.com/1.html"}, payload.HTMLURLs)

	require.NotNil(t, payload.TaxpayerName)
	assert.Equal(t, "Jordan Smith", *payload.TaxpayerName)
	assert.Equal(t, []string{"2022", "2023"}, payload.TaxYears)
	assert.Equal(t, []string{"W-2", "1099-INT"}, payload.TaxForms,
		"tax_forms comes from the taxpayer, not the transcript aggregation")

	require.Len(t, payload.FormDocuments, 2)
	assert.Equal(t, FormDocument{FormType: "W-2", Count: 2}, payload.FormDocuments[0])
	assert.Equal(t, FormDocument{FormType: "1099-INT", Count: 1}, payload.FormDocuments[1])

	require.Contains(t, payload.IncomeVerification, "2023")
	require.NotNil(t, payload.IncomeVerification["2023"].WagesSalaries)
	assert.Equal(t, 85000.0, *payload.IncomeVerification["2023"].WagesSalaries)
}

func TestConductivTransform_PendingRecordIncomplete(t *testing.T) {
	reg := NewRegistry(testBaseURL)
	resp := builder.New().BuildStatus(&verification.Record{
		RequestID: "req_pending",
		Status:    verification.StatusProcessing,
	})

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)
	payload := out.(ConductivPayload)

	assert.False(t, payload.VerificationComplete)
	assert.False(t, payload.TranscriptsAvailable)
	assert.NotNil(t, payload.HTMLURLs, "html_urls must serialize as [], not null")
	assert.NotNil(t, payload.TaxYears)
	assert.NotNil(t, payload.TaxForms)
	assert.NotNil(t, payload.IncomeVerification)
	assert.Nil(t, payload.TaxpayerName)
}

func TestConductivTransform_DocumentResponseHasNoEndpoints(t *testing.T) {
	reg := NewRegistry(testBaseURL)
	resp := builder.New().BuildDocument(completedRecord())

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)
	payload := out.(ConductivPayload)

	assert.Nil(t, payload.StatusURL)
	assert.Nil(t, payload.JSONURL)
	assert.False(t, payload.VerificationComplete, "document responses carry no status")
}

func TestConductivTransform_TranscriptsAvailableIsBooleanOnWire(t *testing.T) {
	reg := NewRegistry(testBaseURL)
	resp := builder.New().BuildStatus(completedRecord())

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)

	wire, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(wire, &decoded))
	assert.Equal(t, true, decoded["transcripts_available"],
		"partners consume transcripts_available as a boolean, never a count")
}

func TestConductivTransform_TaxFormsFromTaxpayerNotTranscripts(t *testing.T) {
	reg := NewRegistry(testBaseURL)
	resp := builder.New().BuildStatus(&verification.Record{
		RequestID: "req_forms",
		Status:    verification.StatusCompleted,
		Taxpayer: &verification.Taxpayer{
			TaxForms: []string{"W-2", "1040"},
		},
		Transcripts: []verification.Transcript{
			{TaxYear: "2023", Forms: []verification.Form{{Type: "1099-INT"}}},
		},
	})

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)
	payload := out.(ConductivPayload)

	assert.Equal(t, []string{"W-2", "1040"}, payload.TaxForms)
	assert.NotNil(t, payload.TaxYears)
	assert.Empty(t, payload.TaxYears)
}

func TestConductivTransform_TrailingSlashBase(t *testing.T) {
	reg := NewRegistry(testBaseURL + "/")
	resp := builder.New().BuildStatus(completedRecord())

	out, err := reg.Apply("conductiv", resp)
	require.NoError(t, err)
	payload := out.(ConductivPayload)

	require.NotNil(t, payload.StatusURL)
	assert.Equal(t, testBaseURL+"/api/status/req_abc", *payload.StatusURL)
}
