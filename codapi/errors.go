package codapi

import "fmt"

// APIError is a failed match-API call carrying the upstream HTTP status and
// the envelope message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return Translate(e) }

// Translate maps an API failure to the human-readable line shown in chat.
// The upstream reports some application errors inside a 200 envelope, so the
// envelope message is consulted first.
func Translate(e *APIError) string {
	if e == nil {
		return "We could not get a valid reason for a failure."
	}
	switch e.Status {
	case 200:
		switch e.Message {
		case "Not permitted: user not found":
			return "404 - Not found. Incorrect username or platform? Misconfigured privacy settings?"
		case "Not permitted: rate limit exceeded":
			return "429 - Too many requests. Try again in a few minutes."
		case "Not permitted: not allowed":
			return e.Message
		case "Error from datastore":
			return "500 - Internal server error. Request failed, try again."
		case "":
			return "No error returned from API."
		default:
			return e.Message
		}
	case 401:
		return "401 - Unauthorized. Incorrect username or password."
	case 403:
		return "403 - Forbidden. You may have been IP banned. Try again in a few minutes."
	case 404:
		return "Account is set to private."
	case 500:
		return "500 - Internal server error. Request failed, try again."
	case 502:
		return "502 - Bad gateway. Request failed, try again."
	default:
		return fmt.Sprintf("We could not get a valid reason for a failure. Status: %d", e.Status)
	}
}

// IsPrivate reports whether an error means the looked-up account hides its
// stats rather than a transient upstream problem.
func IsPrivate(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.Status == 404 || e.Message == "Not permitted: not allowed"
	}
	return false
}
