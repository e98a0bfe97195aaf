// internal/workers/application/create-application/models.go
package createapplication

type Input struct {
	UserID     string                 `json:"userId"`
	SchemeID   string                 `json:"schemeId"`
	SchemeName string                 `json:"schemeName"`
	Category   string                 `json:"category"`
	FormData   map[string]interface{} `json:"formData"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	AppliedDate   string `json:"appliedDate"` // RFC 3339
}
