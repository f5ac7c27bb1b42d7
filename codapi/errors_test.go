package codapi

import "testing"

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  *APIError
		want string
	}{
		{"nil", nil, "We could not get a valid reason for a failure."},
		{"envelope user not found", &APIError{Status: 200, Message: "Not permitted: user not found"},
			"404 - Not found. Incorrect username or platform? Misconfigured privacy settings?"},
		{"envelope rate limit", &APIError{Status: 200, Message: "Not permitted: rate limit exceeded"},
			"429 - Too many requests. Try again in a few minutes."},
		{"envelope not allowed", &APIError{Status: 200, Message: "Not permitted: not allowed"},
			"Not permitted: not allowed"},
		{"envelope datastore", &APIError{Status: 200, Message: "Error from datastore"},
			"500 - Internal server error. Request failed, try again."},
		{"envelope empty", &APIError{Status: 200},
			"No error returned from API."},
		{"envelope passthrough", &APIError{Status: 200, Message: "some new upstream message"},
			"some new upstream message"},
		{"unauthorized", &APIError{Status: 401},
			"401 - Unauthorized. Incorrect username or password."},
		{"forbidden", &APIError{Status: 403},
			"403 - Forbidden. You may have been IP banned. Try again in a few minutes."},
		{"not found", &APIError{Status: 404},
			"Account is set to private."},
		{"server error", &APIError{Status: 500},
			"500 - Internal server error. Request failed, try again."},
		{"bad gateway", &APIError{Status: 502},
			"502 - Bad gateway. Request failed, try again."},
		{"unknown status", &APIError{Status: 418},
			"We could not get a valid reason for a failure. Status: 418"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Translate(tc.err); got != tc.want {
				t.Errorf("Translate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsPrivate(t *testing.T) {
	if !IsPrivate(&APIError{Status: 404}) {
		t.Error("404 should be private")
	}
	if !IsPrivate(&APIError{Status: 200, Message: "Not permitted: not allowed"}) {
		t.Error("not allowed should be private")
	}
	if IsPrivate(&APIError{Status: 500}) {
		t.Error("500 should not be private")
	}
}
