package types

import "fmt"

// Transport is the way MCP callers reach the adapter.
type Transport string

const (
	// TransportStdio serves exactly one caller over the process's stdin and stdout.
	TransportStdio Transport = "stdio"
	// TransportTCP serves one session per accepted socket, line-delimited JSON-RPC.
	TransportTCP Transport = "tcp"
	// TransportHTTP serves streamable HTTP on /mcp, SSE on /sse + /message and the REST view.
	TransportHTTP Transport = "http"
)

// ValidateTransport validates the input string and returns the corresponding Transport.
// It returns an error if the input is invalid or empty.
func ValidateTransport(input string) (Transport, error) {
	errMsgExt := fmt.Sprintf("(acceptable values: '%s', '%s', '%s')", TransportStdio, TransportTCP, TransportHTTP)

	switch input {
	case string(TransportStdio):
		return TransportStdio, nil
	case string(TransportTCP):
		return TransportTCP, nil
	case string(TransportHTTP):
		return TransportHTTP, nil
	case "":
		return "", fmt.Errorf("transport is required %s", errMsgExt)
	default:
		return "", fmt.Errorf("unsupported transport type: %s %s", input, errMsgExt)
	}
}
