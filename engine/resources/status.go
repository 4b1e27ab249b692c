package resources

// Status is the lifecycle position of a resource record.
type Status int

const (
	Unloaded Status = iota
	Loading
	DataReady
	Initialized
	Failed
	Released
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case DataReady:
		return "data-ready"
	case Initialized:
		return "initialized"
	case Failed:
		return "failed"
	case Released:
		return "released"
	}
	return "invalid"
}

// Terminal reports whether no further transition can happen without an
// explicit release and re-request.
func (s Status) Terminal() bool {
	return s == Failed || s == Released
}

// Event is delivered to subscribers, always on the device thread.
type Event struct {
	Key    Key
	Status Status
	Err    error
}
