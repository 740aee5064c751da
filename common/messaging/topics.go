package messaging

// Topic constants for the CallFlow message bus. Publishers and
// subscribers rendezvous by topic name only; the durable backends
// preserve publish order within a topic but guarantee nothing across
// topics.
const (
	// TopicCallLogged carries one call log record retrieved from the
	// telephony platform. Published by callsvc, consumed by the
	// orchestrator.
	TopicCallLogged = "call_logged"

	// TopicLeadCreated is published by leadsvc after the CRM assigns a
	// new lead ID.
	TopicLeadCreated = "lead_created"

	// TopicLeadUpdated is published by leadsvc after an existing lead is
	// updated in place.
	TopicLeadUpdated = "lead_updated"

	// TopicRecordingAttached is published by the orchestrator once a call
	// recording has been attached to a lead (or found already attached).
	TopicRecordingAttached = "recording_attached"

	// TopicLeadProcessed is the terminal event of the call workflow.
	// Published by the orchestrator, consumed by the notifier.
	TopicLeadProcessed = "lead_processed"
)

// Topics lists every topic in publish order through the workflow.
func Topics() []string {
	return []string{
		TopicCallLogged,
		TopicLeadCreated,
		TopicLeadUpdated,
		TopicRecordingAttached,
		TopicLeadProcessed,
	}
}
