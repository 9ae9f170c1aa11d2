package envelope

// DefaultTargetField is the name of the required narrative field that is
// streamed incrementally to the consumer.
const DefaultTargetField = "response"

// Record is a single entry of an auxiliary list: a flat mapping of string
// keys to string values (for example an id/name/number triple).
type Record map[string]string

// Envelope is the outer JSON object a model turn is expected to produce.
//
// Response is required and must be a string. Language is optional. Lists
// collects every other top-level key whose value is an array of flat string
// records; element order within each list is preserved.
type Envelope struct {
	Response string              `json:"response"`
	Language string              `json:"language,omitempty"`
	Lists    map[string][]Record `json:"lists,omitempty"`
}

// Status identifies the outcome of a completion parse.
type Status string

const (
	// StatusParsed indicates the candidate is valid JSON and conforms to the
	// envelope schema.
	StatusParsed Status = "parsed"
	// StatusPending indicates the candidate is not yet syntactically complete.
	// This is the expected state for most of a turn's lifetime, not an error.
	StatusPending Status = "pending"
	// StatusInvalid indicates the candidate is complete JSON but does not
	// conform to the envelope schema. Only meaningful once the stream ended.
	StatusInvalid Status = "invalid"
)

// FinalResult is the outcome of running the completion parser against a
// candidate buffer.
type FinalResult struct {
	Status   Status    `json:"status"`
	Envelope *Envelope `json:"envelope,omitempty"` // set when Status == StatusParsed
	Reason   string    `json:"reason,omitempty"`   // set when Status == StatusInvalid
	Repaired bool      `json:"repaired,omitempty"` // true when produced via repair recovery
}

// Parsed builds a FinalResult for a schema-conforming envelope.
func Parsed(env *Envelope) FinalResult {
	return FinalResult{Status: StatusParsed, Envelope: env}
}

// Pending builds a FinalResult for a syntactically incomplete candidate.
func Pending() FinalResult {
	return FinalResult{Status: StatusPending}
}

// Invalid builds a FinalResult for a complete but schema-nonconforming
// candidate.
func Invalid(reason string) FinalResult {
	return FinalResult{Status: StatusInvalid, Reason: reason}
}
