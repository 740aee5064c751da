package models

import "time"

// LeadStatus is the CRM lead status. The values are the CRM's display
// strings, which is why two of them contain spaces.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "New"
	LeadStatusContacted    LeadStatus = "Contacted"
	LeadStatusQualified    LeadStatus = "Qualified"
	LeadStatusUnqualified  LeadStatus = "Unqualified"
	LeadStatusMissedCall   LeadStatus = "Missed Call"
	LeadStatusAcceptedCall LeadStatus = "Accepted Call"
)

// DefaultLeadName is used for both first and last name when a caller
// cannot be identified from the call log.
const DefaultLeadName = "Unknown Caller"

// LeadOwner is the CRM user a lead is assigned to.
type LeadOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Lead is a CRM lead record. ID is empty until the CRM assigns one.
// Phone is the natural join key for matching calls to leads; it is stored
// normalized (digits only, US numbers carry the leading country code).
type Lead struct {
	ID           string     `json:"id,omitempty"`
	Phone        string     `json:"phone"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Email        string     `json:"email,omitempty"`
	Company      string     `json:"company,omitempty"`
	LeadSource   string     `json:"leadSource,omitempty"`
	LeadStatus   LeadStatus `json:"leadStatus,omitempty"`
	Owner        *LeadOwner `json:"owner,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedTime  *time.Time `json:"createdTime,omitempty"`
	ModifiedTime *time.Time `json:"modifiedTime,omitempty"`
}

// Note is an append-only annotation attached to a lead. Notes are never
// mutated after creation.
type Note struct {
	ParentLeadID string `json:"parentLeadId"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content"`
}

// Attachment is an append-only file attached to a lead. Duplicate
// recordings are prevented by a filename substring check at upload time,
// not by this type.
type Attachment struct {
	ParentLeadID string `json:"parentLeadId"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	Content      []byte `json:"content"`
}
