package level

// Kind is the closed set of node kinds. KindUnknown is the fallback for any
// unrecognized spelling and is always rejected by validation.
type Kind int

const (
	KindUnknown Kind = iota
	KindCompute
	KindDatabase
	KindStorage
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindDatabase:
		return "database"
	case KindStorage:
		return "storage"
	case KindGateway:
		return "gateway"
	default:
		return "unknown"
	}
}

// ParseKind maps a document spelling onto a Kind.
func ParseKind(s string) Kind {
	switch s {
	case "compute":
		return KindCompute
	case "database":
		return KindDatabase
	case "storage":
		return KindStorage
	case "gateway":
		return KindGateway
	default:
		return KindUnknown
	}
}

// Kinds lists the recognized node kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindCompute, KindDatabase, KindStorage, KindGateway}
}

// IncidentType categorizes incidents. The set is open in the game design but
// every type a level uses must be one the engine knows about.
type IncidentType int

const (
	IncidentUnknown IncidentType = iota
	IncidentTraffic
	IncidentComponent
	IncidentNetwork
	IncidentStorage
)

func (t IncidentType) String() string {
	switch t {
	case IncidentTraffic:
		return "traffic"
	case IncidentComponent:
		return "component"
	case IncidentNetwork:
		return "network"
	case IncidentStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// ParseIncidentType maps a document spelling onto an IncidentType.
func ParseIncidentType(s string) IncidentType {
	switch s {
	case "traffic":
		return IncidentTraffic
	case "component":
		return IncidentComponent
	case "network":
		return IncidentNetwork
	case "storage":
		return IncidentStorage
	default:
		return IncidentUnknown
	}
}

// IncidentTypes lists the recognized incident types.
func IncidentTypes() []IncidentType {
	return []IncidentType{IncidentTraffic, IncidentComponent, IncidentNetwork, IncidentStorage}
}

// EffectMode states the direction of an effect explicitly instead of
// inferring it from the magnitude.
type EffectMode int

const (
	ModeUnknown EffectMode = iota
	// ModeInject adds an absolute volume to the metric.
	ModeInject
	// ModeAmplify multiplies the metric by a factor above 1.
	ModeAmplify
	// ModeDampen multiplies the metric by a factor in (0, 1].
	ModeDampen
)

func (m EffectMode) String() string {
	switch m {
	case ModeInject:
		return "inject"
	case ModeAmplify:
		return "amplify"
	case ModeDampen:
		return "dampen"
	default:
		return "unknown"
	}
}

// ParseEffectMode maps a document spelling onto an EffectMode.
func ParseEffectMode(s string) EffectMode {
	switch s {
	case "inject":
		return ModeInject
	case "amplify":
		return ModeAmplify
	case "dampen":
		return ModeDampen
	default:
		return ModeUnknown
	}
}

// EffectModes lists the recognized effect modes.
func EffectModes() []EffectMode {
	return []EffectMode{ModeInject, ModeAmplify, ModeDampen}
}

// Metric names a live node metric that jobs and incidents may act on.
type Metric int

const (
	MetricUnknown Metric = iota
	MetricRequests
	MetricQueries
	MetricConnections
	MetricUtilization
	MetricLatency
	MetricCapacity
	MetricStorageUsage
)

func (m Metric) String() string {
	switch m {
	case MetricRequests:
		return "requests"
	case MetricQueries:
		return "queries"
	case MetricConnections:
		return "connections"
	case MetricUtilization:
		return "utilization"
	case MetricLatency:
		return "latency"
	case MetricCapacity:
		return "capacity"
	case MetricStorageUsage:
		return "storage_usage"
	default:
		return "unknown"
	}
}

// ParseMetric maps a document spelling onto a Metric.
func ParseMetric(s string) Metric {
	switch s {
	case "requests":
		return MetricRequests
	case "queries":
		return MetricQueries
	case "connections":
		return MetricConnections
	case "utilization":
		return MetricUtilization
	case "latency":
		return MetricLatency
	case "capacity":
		return MetricCapacity
	case "storage_usage":
		return MetricStorageUsage
	default:
		return MetricUnknown
	}
}

// Metrics lists the recognized metric names.
func Metrics() []Metric {
	return []Metric{
		MetricRequests, MetricQueries, MetricConnections, MetricUtilization,
		MetricLatency, MetricCapacity, MetricStorageUsage,
	}
}

// IsLoad reports whether the metric is one of the per-tick load channels.
// requests, queries and connections all drive the same load figure; which
// spelling is legal depends on the node kind.
func (m Metric) IsLoad() bool {
	return m == MetricRequests || m == MetricQueries || m == MetricConnections
}

var kindMetrics = map[Kind][]Metric{
	KindCompute:  {MetricRequests, MetricConnections, MetricUtilization, MetricLatency, MetricCapacity},
	KindGateway:  {MetricRequests, MetricConnections, MetricUtilization, MetricLatency, MetricCapacity},
	KindDatabase: {MetricQueries, MetricConnections, MetricUtilization, MetricLatency, MetricCapacity},
	KindStorage:  {MetricStorageUsage, MetricCapacity},
}

// MetricsFor returns the metrics recognized on nodes of the given kind.
func MetricsFor(k Kind) []Metric {
	return kindMetrics[k]
}

// Supports reports whether metric m is recognized on nodes of kind k.
func (k Kind) Supports(m Metric) bool {
	for _, candidate := range kindMetrics[k] {
		if candidate == m {
			return true
		}
	}
	return false
}

// MarshalText lets kinds render by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (t IncidentType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (m EffectMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText is the inverse of MarshalText. Unrecognized names decode to
// the Unknown value rather than failing, matching the Parse functions.
func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

func (t *IncidentType) UnmarshalText(b []byte) error {
	*t = ParseIncidentType(string(b))
	return nil
}

func (m *EffectMode) UnmarshalText(b []byte) error {
	*m = ParseEffectMode(string(b))
	return nil
}

func (m *Metric) UnmarshalText(b []byte) error {
	*m = ParseMetric(string(b))
	return nil
}
