package recorder

// QueryEvent describes one served price query. Price values are never
// recorded.
type QueryEvent struct {
	Kind    string // "current", "range" or "raw"
	From    string
	To      string
	Entries int
	Outcome string // "ok", "validation", "data", "transport" or "error"
	Detail  string
}

// Recorder keeps an audit trail of served queries.
type Recorder interface {
	RecordQuery(evt *QueryEvent) error
	Close() error
}
