package types

// ErrorKind classifies why a request failed so that callers can branch on it.
type ErrorKind string

const (
	// ErrorKindValidation means the input was rejected, either by the backend (non-404 4xx)
	// or by the adapter because a required identifier was missing.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindNotFound means the addressed task does not exist.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindTransport means the backend could not be reached or did not answer in time.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindUnknownTool means the requested tool is not advertised.
	ErrorKindUnknownTool ErrorKind = "unknown_tool"
	// ErrorKindBackend means the backend failed with a 5xx status.
	ErrorKindBackend ErrorKind = "backend"
)

// Envelope is the uniform wrapper returned for every tool invocation.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// Task is set by operations that return a single task.
	Task *Task `json:"task,omitempty"`
	// Result is set by operations that return an aggregate (bulk result, task listing).
	Result any `json:"result,omitempty"`

	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

// Failure builds a failure envelope.
func Failure(kind ErrorKind, msg string) Envelope {
	return Envelope{Success: false, Error: msg, ErrorKind: kind}
}
