package interceptor

import "strconv"

const (
	// GenericMessage is shown when no response could be read, e.g. a
	// cross-origin failure that hides the status.
	GenericMessage = "Please contact the system administrator, or try again later!"
	GenericTitle   = "Unknown error"
)

var statusTitles = map[int]string{
	400: "Bad request",
	401: "Resource not authorized",
	403: "Access forbidden",
	404: "Requested resource not found",
	405: "Method not allowed",
	408: "Request timed out",
	500: "Internal server error",
	501: "Not implemented",
	502: "Bad gateway",
	503: "Service unavailable",
	504: "Gateway timeout",
	505: "HTTP version not supported",
}

// StatusTitle returns the alert title for an HTTP status code. Unknown codes
// are titled with the code itself.
func StatusTitle(code int) string {
	if title, ok := statusTitles[code]; ok {
		return title
	}
	return strconv.Itoa(code)
}
