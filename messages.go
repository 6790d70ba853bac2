package server

type joinResponse struct {
	Ver        int             `json:"ver"`
	ID         string          `json:"id"`
	Nodes      []NodeView      `json:"nodes"`
	Packets    []PacketView    `json:"packets"`
	Broadcasts []BroadcastView `json:"broadcasts"`
	Config     Config          `json:"config"`
}

type stateMessage struct {
	Ver        int             `json:"ver"`
	Type       string          `json:"type"`
	Tick       uint64          `json:"t"`
	Nodes      []NodeView      `json:"nodes"`
	Packets    []PacketView    `json:"packets"`
	Broadcasts []BroadcastView `json:"broadcasts"`
	ServerTime int64           `json:"serverTime"`
}

type clientMessage struct {
	Ver      int    `json:"ver,omitempty"`
	Type     string `json:"type"`
	NodeID   string `json:"nodeId,omitempty"`
	NodeType string `json:"nodeType,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	SentAt   int64  `json:"sentAt,omitempty"`
}

type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type diagnosticsViewer struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}
