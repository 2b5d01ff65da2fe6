package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind is the value type a key was registered with. SetDefault rejects
// values of any other kind, so a typo in a YAML file fails loudly instead
// of silently configuring nothing.
type Kind uint8

const (
	Bool Kind = iota
	Uint
	Float
	Duration
	String
)

type entry struct {
	kind Kind
	val  interface{}
}

// Store is the global-defaults registry consulted by the scenario builder
// and the engine. Every tunable has a registered kind and built-in default.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Store {
	s := &Store{entries: make(map[string]entry)}

	s.register("radio.harqEnabled", Bool, true)
	s.register("radio.rlcAmEnabled", Bool, false)
	s.register("radio.rateMbps", Uint, uint(2800))
	s.register("radio.delayUs", Float, 250.0)
	s.register("radio.lossPct", Float, 5.0)
	s.register("radio.harq.residualLossFactor", Float, 0.1)
	s.register("radio.harq.rttUs", Float, 625.0)

	s.register("sched.type", String, "flex-tti")
	s.register("sched.harqEnabled", Bool, true)

	s.register("rlc.am.reportBufferStatusTimer", Duration, 100*time.Microsecond)
	s.register("rlc.um.reportBufferStatusTimer", Duration, 100*time.Microsecond)
	s.register("rlc.am.retxDelayUs", Float, 2000.0)

	s.register("p2p.dataRate", String, "100Gb/s")
	s.register("p2p.mtu", Uint, uint(1500))
	s.register("p2p.delay", Duration, 10*time.Millisecond)

	s.register("core.rateMbps", Uint, uint(10000))
	s.register("core.delayUs", Float, 50.0)

	s.register("topo.enbSpacing", Float, 200.0)
	s.register("topo.droneAltitude", Float, 30.0)

	s.register("coverage.radius", Float, 150.0)
	s.register("coverage.searchRadius", Float, 250.0)
	s.register("coverage.towerRange", Float, 600.0)
	s.register("coverage.stepSeconds", Float, 1.0)

	s.register("drone.batteryJ", Float, 5000.0)
	s.register("drone.drain.search", Float, 12.0)
	s.register("drone.drain.cluster", Float, 8.0)
	s.register("drone.drain.relay", Float, 10.0)

	s.register("engine.packetBytes", Uint, uint(1024))

	s.register("emu.image", String, "frr:v4")
	s.register("emu.bridge", String, "dronenet-br0")

	return s
}

func (s *Store) register(key string, kind Kind, def interface{}) {
	s.entries[key] = entry{kind: kind, val: def}
}

// SetDefault overrides the value of a registered key. The value is coerced
// from the loose types YAML produces (int, float64, string).
func (s *Store) SetDefault(key string, val interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	coerced, err := coerce(e.kind, val)
	if err != nil {
		return fmt.Errorf("config key %q: %v", key, err)
	}
	e.val = coerced
	s.entries[key] = e
	return nil
}

func coerce(kind Kind, val interface{}) (interface{}, error) {
	switch kind {
	case Bool:
		if b, ok := val.(bool); ok {
			return b, nil
		}
	case Uint:
		switch v := val.(type) {
		case uint:
			return v, nil
		case int:
			if v >= 0 {
				return uint(v), nil
			}
		case uint64:
			return uint(v), nil
		case float64:
			if v >= 0 && v == float64(uint(v)) {
				return uint(v), nil
			}
		}
	case Float:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case uint:
			return float64(v), nil
		}
	case Duration:
		switch v := val.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	case String:
		if str, ok := val.(string); ok {
			return str, nil
		}
	}
	return nil, fmt.Errorf("value %v has wrong type for this key", val)
}

// LoadFile reads a flat YAML key/value document and applies every pair
// through SetDefault.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading defaults file: %v", err)
	}
	return s.LoadBytes(data)
}

func (s *Store) LoadBytes(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error unmarshaling defaults file: %v", err)
	}
	for k, v := range doc {
		if err := s.SetDefault(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Apply sets every pair from the map, used for the defaults section of a
// scenario file.
func (s *Store) Apply(defaults map[string]interface{}) error {
	for k, v := range defaults {
		if err := s.SetDefault(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) get(key string, kind Kind) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.kind != kind {
		panic(fmt.Sprintf("config key %q not registered with requested kind", key))
	}
	return e.val
}

func (s *Store) Bool(key string) bool              { return s.get(key, Bool).(bool) }
func (s *Store) Uint(key string) uint              { return s.get(key, Uint).(uint) }
func (s *Store) Float(key string) float64          { return s.get(key, Float).(float64) }
func (s *Store) Duration(key string) time.Duration { return s.get(key, Duration).(time.Duration) }
func (s *Store) String(key string) string          { return s.get(key, String).(string) }
