package domain

// ChannelInfo is the immutable descriptor published to clients: the
// channel name and the host:port its listener is bound to. Addresses
// are ephemeral and re-picked every server start.
type ChannelInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
