package state

import "time"

// View is the wire form of a Snapshot shared by the HTTP status endpoint and
// the MQTT publisher.
type View struct {
	CurrentPage         int       `json:"current_page" msgpack:"current_page"`
	PageCount           int       `json:"page_count" msgpack:"page_count"`
	CachedPages         int       `json:"cached_pages" msgpack:"cached_pages"`
	QueueIndex          int       `json:"queue_index" msgpack:"queue_index"`
	Downloading         bool      `json:"downloading" msgpack:"downloading"`
	ChannelLinkUp       bool      `json:"channel_link_up" msgpack:"channel_link_up"`
	ChannelRegistered   bool      `json:"channel_registered" msgpack:"channel_registered"`
	NetworkLinkUp       bool      `json:"network_link_up" msgpack:"network_link_up"`
	Offline             bool      `json:"offline" msgpack:"offline"`
	LastInteraction     time.Time `json:"last_interaction,omitzero" msgpack:"last_interaction,omitempty"`
	LastUpdated         time.Time `json:"last_updated,omitzero" msgpack:"last_updated,omitempty"`
	LastError           string    `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures" msgpack:"consecutive_failures"`
}

// View flattens the snapshot.
func (s Snapshot) View() View {
	v := View{
		CurrentPage:         s.Session.CurrentPage,
		PageCount:           s.Session.PageCount,
		CachedPages:         s.CachedPages,
		QueueIndex:          s.Session.QueueIndex,
		Downloading:         s.Session.Downloading,
		ChannelLinkUp:       s.Session.Connectivity.ChannelLinkUp,
		ChannelRegistered:   s.Session.Connectivity.ChannelRegistered,
		NetworkLinkUp:       s.Session.Connectivity.NetworkLinkUp,
		Offline:             s.IsOffline(),
		LastInteraction:     s.Session.LastInteraction,
		LastUpdated:         s.LastUpdated,
		ConsecutiveFailures: s.ConsecutiveFailures,
	}
	if !s.HasSession {
		v.CurrentPage, v.PageCount, v.QueueIndex = -1, -1, -1
	}
	if s.LastError != nil {
		v.LastError = s.LastError.Error()
	}
	return v
}
