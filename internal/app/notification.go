package app

import (
	"errors"

	"opspanel/internal/domain"
)

// UnexpectedErrorMessage is shown when an error carries no usable message.
const UnexpectedErrorMessage = "An unexpected error occurred"

const (
	apiErrorDuration     = 6
	genericErrorDuration = 4
	placementTopRight    = "topRight"
)

// Notification describes a transient error toast for the dashboard.
// Duration is in seconds; zero means the toast stays until dismissed.
type Notification struct {
	Type        string               `json:"type"`
	Title       string               `json:"message"`
	Description string               `json:"description,omitempty"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	Duration    int                  `json:"duration"`
	Placement   string               `json:"placement,omitempty"`
	Details     *NotificationDetails `json:"details,omitempty"`
}

// NotificationDetails is the optional disclosure opened from a structured
// upstream error. It is only attached when the error carried details.
type NotificationDetails struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Fingerprint string `json:"fingerprint"`
	Details     string `json:"details"`
	Duration    int    `json:"duration"`
}

// Notify classifies err into one of three tiers: a structured upstream
// error, an error with a message, or an unexpected error.
func Notify(err error) Notification {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		n := errorNotification(apiErr.Message, apiErrorDuration)
		n.Fingerprint = apiErr.Fingerprint
		if apiErr.Details != nil && *apiErr.Details != "" {
			n.Details = &NotificationDetails{
				Key:         "error-details",
				Title:       "Error Details",
				Code:        apiErr.Code,
				Message:     apiErr.Message,
				Fingerprint: apiErr.Fingerprint,
				Details:     *apiErr.Details,
			}
		}
		return n
	}

	if err != nil && err.Error() != "" {
		return errorNotification(err.Error(), genericErrorDuration)
	}
	return errorNotification(UnexpectedErrorMessage, genericErrorDuration)
}

func errorNotification(description string, duration int) Notification {
	return Notification{
		Type:        "error",
		Title:       "Error",
		Description: description,
		Duration:    duration,
		Placement:   placementTopRight,
	}
}
