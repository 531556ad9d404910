package model

import "strings"

// Recipient is a resolved addressable target with a contact address.
// StatusAtResolution is frozen when the recipient list is resolved so later
// directory changes never retroactively alter an in-flight job.
type Recipient struct {
	ID                 string     `json:"id"`
	Type               TargetType `json:"type"`
	DisplayName        string     `json:"display_name"`
	ContactAddress     string     `json:"contact_address"`
	StatusAtResolution string     `json:"status_at_resolution_time,omitempty"`
}

// FailedRecipient records one per-recipient dispatch failure.
// Records are append-only and ordered by the sequence the failures occurred.
type FailedRecipient struct {
	RecipientID    string `json:"recipient_id"`
	ContactAddress string `json:"contact_address"` // masked
	DisplayName    string `json:"display_name"`
	Error          string `json:"error"`
}

const (
	maskKeepPrefix = 3
	maskKeepSuffix = 2
)

// MaskContact replaces all but the first three and last two digits of a
// contact address with '*'. Non-digit separators are preserved as-is.
func MaskContact(addr string) string {
	digits := 0
	for _, r := range addr {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= maskKeepPrefix+maskKeepSuffix {
		return addr
	}

	var b strings.Builder
	b.Grow(len(addr))
	seen := 0
	for _, r := range addr {
		if r < '0' || r > '9' {
			b.WriteRune(r)
			continue
		}
		seen++
		if seen <= maskKeepPrefix || seen > digits-maskKeepSuffix {
			b.WriteRune(r)
		} else {
			b.WriteByte('*')
		}
	}
	return b.String()
}

// RecipientOutcome is the result of one provider send attempt.
type RecipientOutcome struct {
	Recipient Recipient
	Sent      bool
	Error     string
}

// Failure converts a failed outcome into its audit record, masking the
// contact address.
func (o RecipientOutcome) Failure() FailedRecipient {
	return FailedRecipient{
		RecipientID:    o.Recipient.ID,
		ContactAddress: MaskContact(o.Recipient.ContactAddress),
		DisplayName:    o.Recipient.DisplayName,
		Error:          o.Error,
	}
}
