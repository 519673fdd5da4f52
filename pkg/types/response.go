package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PageEnvelope is the shape list endpoints return: records plus resume cursors.
type PageEnvelope struct {
	Data       any     `json:"data"`
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
