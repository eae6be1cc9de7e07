package upstream

import (
	"opspanel/internal/domain"

	"github.com/tidwall/gjson"
)

// decodeError turns a non-2xx response into *domain.APIError when the body
// has the full structured shape, and *domain.HTTPError otherwise.
func decodeError(status int, body []byte) error {
	if !gjson.ValidBytes(body) {
		return errorWithStatus(status, &domain.HTTPError{Status: status})
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return errorWithStatus(status, &domain.HTTPError{Status: status})
	}

	fields := gjson.GetManyBytes(body, "httpStatusCode", "code", "message", "fingerprint", "details")
	httpStatus, code, message, fingerprint, details := fields[0], fields[1], fields[2], fields[3], fields[4]

	if httpStatus.Type == gjson.Number && code.Type == gjson.String &&
		message.Type == gjson.String && fingerprint.Type == gjson.String {
		e := &domain.APIError{
			HTTPStatusCode: int(httpStatus.Int()),
			Code:           code.String(),
			Message:        message.String(),
			Fingerprint:    fingerprint.String(),
		}
		if details.Exists() && details.Type != gjson.Null {
			d := details.String()
			if details.Type != gjson.String {
				d = details.Raw
			}
			// An empty string carries nothing to disclose.
			if d != "" {
				e.Details = &d
			}
		}
		return errorWithStatus(status, e)
	}

	e := &domain.HTTPError{Status: status}
	if message.Type == gjson.String {
		e.Message = message.String()
	}
	return errorWithStatus(status, e)
}
