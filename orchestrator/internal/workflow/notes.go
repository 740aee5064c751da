package workflow

import (
	"fmt"
	"strings"

	"github.com/callflow-systems/callflow-stack/common/models"
)

const noteTimeLayout = "2006-01-02 15:04:05"

// noteTitle builds the CRM note title for a call.
func noteTitle(call *models.CallEvent) string {
	ts := call.StartTime.Format(noteTimeLayout)
	if call.Result == models.ResultMissed {
		return "Missed Call on " + ts
	}
	return "Call on " + ts
}

// noteContent builds the CRM note body summarizing a call. The called
// extension is rendered from the event's extension ID, not the called
// party's number.
func noteContent(call *models.CallEvent, extensionID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call received on %s\n", call.StartTime.Format(noteTimeLayout))
	b.WriteString("---\n")
	fmt.Fprintf(&b, "Call ID: %s\n", call.ID)
	fmt.Fprintf(&b, "Call direction: %s\n", call.Direction)
	fmt.Fprintf(&b, "Call result: %s\n", call.Result)
	fmt.Fprintf(&b, "Call duration: %d seconds\n", call.Duration)
	fmt.Fprintf(&b, "Caller number: %s\n", call.From.PhoneNumber)
	fmt.Fprintf(&b, "Called extension: %s\n", extensionID)
	if call.HasRecording() {
		fmt.Fprintf(&b, "Recording ID: %s\n", call.Recording.ID)
	}
	return b.String()
}

// recordingFileName builds the attachment filename for a call recording.
// The call start time prefix keeps filenames unique per call, and the
// recording ID inside the name is what the lead service's duplicate check
// matches on.
func recordingFileName(call *models.CallEvent, contentType string) string {
	return fmt.Sprintf("%s_recording_%s.%s",
		call.StartTime.Format("20060102_150405"),
		call.Recording.ID,
		fileExtension(contentType))
}

// fileExtension maps a recording MIME type to a filename extension.
func fileExtension(contentType string) string {
	switch contentType {
	case "audio/mpeg":
		return "mp3"
	case "audio/wav", "audio/x-wav":
		return "wav"
	}
	if idx := strings.Index(contentType, "/"); idx >= 0 && idx+1 < len(contentType) {
		return contentType[idx+1:]
	}
	return "bin"
}
