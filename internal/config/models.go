package config

import "time"

// Registry is the sensor-cfg state file: the sensors this machine has
// paired with, and client preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Sensors     map[string]*Sensor `yaml:"sensors,omitempty"` // Keyed by sensor id
	Default     string             `yaml:"default,omitempty"` // Sensor id used when none is given
	Preferences *Preferences       `yaml:"preferences,omitempty"`

	path string
}

// Sensor is what the client remembers about one paired sensor.
type Sensor struct {
	Nickname string    `yaml:"nickname,omitempty"`
	Host     string    `yaml:"host"`
	Port     int       `yaml:"port"`
	PairID   string    `yaml:"pair_id,omitempty"` // Sent as X-Pair-Id
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout int `yaml:"discover_timeout"` // mDNS discovery timeout in seconds
	RequestTimeout  int `yaml:"request_timeout"`  // Per-request timeout in seconds
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: 5,
		RequestTimeout:  10,
	}
}

// NewRegistry creates an empty registry that saves to path.
func NewRegistry(path string) *Registry {
	return &Registry{
		Version:     1,
		Sensors:     make(map[string]*Sensor),
		Preferences: defaultPreferences(),
		path:        path,
	}
}

// Path returns the file the registry saves to.
func (r *Registry) Path() string { return r.path }

// GetSensor returns the entry for id, or nil.
func (r *Registry) GetSensor(id string) *Sensor {
	return r.Sensors[id]
}

// EnsureSensor returns the entry for id, creating it if needed.
func (r *Registry) EnsureSensor(id string) *Sensor {
	if r.Sensors == nil {
		r.Sensors = make(map[string]*Sensor)
	}
	if s, ok := r.Sensors[id]; ok {
		return s
	}
	s := &Sensor{}
	r.Sensors[id] = s
	return s
}

// RecordPairing stores the pair id issued by the sensor at host:port. The
// first sensor paired becomes the default.
func (r *Registry) RecordPairing(id, host string, port int, pairID string) {
	s := r.EnsureSensor(id)
	s.Host = host
	s.Port = port
	s.PairID = pairID
	s.LastSeen = time.Now()
	if r.Default == "" {
		r.Default = id
	}
}

// UpdateSensorLastSeen refreshes the address and timestamp for id.
func (r *Registry) UpdateSensorLastSeen(id, host string, port int) {
	s := r.EnsureSensor(id)
	s.Host = host
	s.Port = port
	s.LastSeen = time.Now()
}

// SetSensorNickname sets a user-friendly name for a sensor.
func (r *Registry) SetSensorNickname(id, nickname string) {
	r.EnsureSensor(id).Nickname = nickname
}

// Resolve finds a sensor by id or nickname. An empty ref means the default.
func (r *Registry) Resolve(ref string) (string, *Sensor, bool) {
	if ref == "" {
		ref = r.Default
	}
	if s, ok := r.Sensors[ref]; ok {
		return ref, s, true
	}
	for id, s := range r.Sensors {
		if s.Nickname != "" && s.Nickname == ref {
			return id, s, true
		}
	}
	return "", nil, false
}

// Remove forgets a sensor.
func (r *Registry) Remove(id string) {
	delete(r.Sensors, id)
	if r.Default == id {
		r.Default = ""
	}
}
