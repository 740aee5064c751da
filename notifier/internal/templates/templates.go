// Package templates renders notification emails from placeholder
// templates. Placeholders are literal tokens ({lead_id}, {status},
// {message}, {timestamp}); rendering is pure string substitution and
// cannot fail.
package templates

import "strings"

// Template is one email template: a subject line and a plain-text body,
// both allowed to carry placeholders.
type Template struct {
	Subject string `json:"subject" mapstructure:"subject"`
	Body    string `json:"body" mapstructure:"body"`
}

// Template keys. Unknown lead statuses fall back to the generic template.
const (
	KeyCompleted = "completed"
	KeyError     = "error"
	KeyGeneric   = "generic"
)

// Defaults returns the built-in template set.
func Defaults() map[string]Template {
	return map[string]Template{
		KeyCompleted: {
			Subject: "Lead {lead_id} processed",
			Body: "Lead {lead_id} was processed successfully at {timestamp}.\n\n" +
				"Details: {message}\n",
		},
		KeyError: {
			Subject: "Lead {lead_id} processing failed",
			Body: "Processing of lead {lead_id} failed at {timestamp}.\n\n" +
				"Error: {message}\n\nPlease review the lead in the CRM.\n",
		},
		KeyGeneric: {
			Subject: "Lead {lead_id}: {status}",
			Body: "Lead {lead_id} finished with status {status} at {timestamp}.\n\n" +
				"Details: {message}\n",
		},
	}
}

// Fields carries the placeholder values for one rendering.
type Fields struct {
	LeadID    string
	Status    string
	Message   string
	Timestamp string
}

// Render substitutes the placeholder tokens. Tokens absent from the
// template are simply not substituted; unknown tokens in the template are
// left as-is.
func Render(tpl Template, f Fields) (subject, body string) {
	r := strings.NewReplacer(
		"{lead_id}", f.LeadID,
		"{status}", f.Status,
		"{message}", f.Message,
		"{timestamp}", f.Timestamp,
	)
	return r.Replace(tpl.Subject), r.Replace(tpl.Body)
}

// ForStatus picks the template for a lead status, falling back to the
// generic one.
func ForStatus(set map[string]Template, status string) Template {
	if tpl, ok := set[status]; ok {
		return tpl
	}
	if tpl, ok := set[KeyGeneric]; ok {
		return tpl
	}
	return Defaults()[KeyGeneric]
}
