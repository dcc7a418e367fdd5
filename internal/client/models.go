package client

// SensorInfo is the GET /sensor document.
type SensorInfo struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Features *uint32 `json:"features"`
	Pairing  bool    `json:"pairing"`
}

// Usage reports flash bytes used per namespace.
type Usage struct {
	DataUsed  int `json:"data_used"`
	DataTotal int `json:"data_total"`
	PairUsed  int `json:"pair_used"`
	PairTotal int `json:"pair_total"`
}

// SensorFull is the GET /sensor/full document.
type SensorFull struct {
	SensorInfo
	PairedKeys int    `json:"paired_keys"`
	Usage      Usage  `json:"usage"`
	Uptime     int64  `json:"uptime"`
	FreeMemory uint64 `json:"free_memory"`
}

// SettingsUpdate is a partial POST /sensor body. Nil fields are not sent.
type SettingsUpdate struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Features *uint32 `json:"features,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u *SettingsUpdate) Empty() bool {
	return u.Name == nil && u.Location == nil && u.Features == nil
}

// Measurement is one /dht history entry.
type Measurement struct {
	Timestamp   int64   `json:"timestamp"`
	Temperature float32 `json:"temperature"`
	Humidity    float32 `json:"humidity"`
}

type historyQuery struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
	Count     int    `json:"count"`
}

type historyResponse struct {
	Measurements []Measurement `json:"measurements"`
}

type pairResponse struct {
	ID string `json:"id"`
}

type resultResponse struct {
	Result string `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}
