package realtime

// Local event types emitted to in-process listeners.
const (
	EventViewerJoined       = "viewer:joined"
	EventViewerLeft         = "viewer:left"
	EventViewerCountChanged = "viewerCount:changed"
	EventChatMessage        = "chat:message"
	EventGiftReceived       = "gift:received"
	EventMetricsUpdated     = "metrics:updated"
)

// Event is delivered synchronously to listeners registered with
// Manager.Notify.
type Event struct {
	Type     string
	StreamID string
	Payload  interface{}
}

// ViewerCountChange is the payload of EventViewerCountChanged.
type ViewerCountChange struct {
	StreamID      string `json:"stream_id"`
	Count         int    `json:"count"`
	PreviousCount int    `json:"previous_count"`
}
