package partner

import (
	"time"

	"taxrelay/internal/response/schema"
)

// EmployerComPayload is the skeleton shape for the employer.com
// integration. The employment_verification section is empty until the
// partner finalizes their field mapping.
type EmployerComPayload struct {
	RequestID              string         `json:"request_id"`
	Status                 string         `json:"status"`
	EmploymentVerification map[string]any `json:"employment_verification"`
	Timestamp              time.Time      `json:"timestamp"`
}

// EmployerComTransform maps any canonical variant onto the employer.com
// skeleton.
func EmployerComTransform() Transform {
	return func(resp schema.Response) (any, error) {
		v := viewOf(resp)
		env := resp.Env()
		return EmployerComPayload{
			RequestID:              env.RequestID,
			Status:                 v.status,
			EmploymentVerification: map[string]any{},
			Timestamp:              env.Timestamp,
		}, nil
	}
}
