package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
)

// DocumentType identifies the kind of content document a notification is about.
type DocumentType string

const (
	DocumentTypePost     DocumentType = "post"
	DocumentTypeAuthor   DocumentType = "author"
	DocumentTypeSettings DocumentType = "settings"
)

// Known reports whether the resolver has a policy for this type.
func (t DocumentType) Known() bool {
	switch t {
	case DocumentTypePost, DocumentTypeAuthor, DocumentTypeSettings:
		return true
	}
	return false
}

// ChangeNotification is one content store mutation event, built once per
// webhook delivery and never modified afterwards.
type ChangeNotification struct {
	DocumentType DocumentType
	DocumentID   string `validate:"required"`
	// Date is the document's publish date. Nil when the payload carried none
	// or it could not be parsed.
	Date *time.Time
	// Slug is captured from the payload so deleted posts can still be routed.
	Slug string
}

// DateOrEpoch returns Date, or the Unix epoch when the notification has no date.
func (n ChangeNotification) DateOrEpoch() time.Time {
	if n.Date == nil {
		return time.Unix(0, 0).UTC()
	}
	return *n.Date
}

// changeNotificationPayload is the JSON projection the content store webhook sends.
type changeNotificationPayload struct {
	Type string          `json:"_type"`
	ID   string          `json:"_id"`
	Date *string         `json:"date"`
	Slug json.RawMessage `json:"slug"`
}

type slugObject struct {
	Current string `json:"current"`
}

var notificationValidator = validator.New()

// dateLayouts are the ISO-8601 shapes the content store emits for date and datetime fields.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseChangeNotification decodes and validates a raw webhook body.
// Empty bodies, invalid JSON and missing ids yield ErrMalformedRequest.
// An unparsable date is dropped rather than rejected (see DateOrEpoch).
func ParseChangeNotification(raw []byte) (ChangeNotification, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ChangeNotification{}, apperrors.MalformedRequestError("empty body")
	}

	var payload changeNotificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ChangeNotification{}, apperrors.MalformedRequestError("invalid JSON body: " + err.Error())
	}

	n := ChangeNotification{
		DocumentType: DocumentType(payload.Type),
		DocumentID:   payload.ID,
		Slug:         decodeSlug(payload.Slug),
	}
	if payload.Date != nil {
		n.Date = parseDate(*payload.Date)
	}

	if err := notificationValidator.Struct(n); err != nil {
		var fieldErrs validator.ValidationErrors
		if apperrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return ChangeNotification{}, apperrors.MalformedRequestError(fieldErrs[0].Field() + " is required")
		}
		return ChangeNotification{}, apperrors.MalformedRequestError(err.Error())
	}

	return n, nil
}

func decodeSlug(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj slugObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Current)
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	return ""
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ManualRevalidationRequest asks for a resolution without a signed webhook.
type ManualRevalidationRequest struct {
	Type string `json:"type" binding:"required,oneof=post author settings"`
	ID   string `json:"id" binding:"required_unless=Type settings"`
}

// ToNotification converts the request into a notification for the resolver.
func (r ManualRevalidationRequest) ToNotification() ChangeNotification {
	id := r.ID
	if id == "" {
		// settings is a singleton; the id is only informational
		id = string(DocumentTypeSettings)
	}
	return ChangeNotification{
		DocumentType: DocumentType(r.Type),
		DocumentID:   id,
	}
}

// RevalidationResult is returned by the manual revalidation endpoint.
type RevalidationResult struct {
	DeliveryID string   `json:"deliveryId"`
	Routes     []string `json:"routes"`
}
