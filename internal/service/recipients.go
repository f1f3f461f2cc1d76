package service

import (
	"net/mail"
	"strings"
)

// Recipient is a single recipient email address from a raw recipient string.
type Recipient struct {
	Email string
}

// RecipientList partitions a parsed recipient string into syntactically
// valid and invalid addresses, each in original order. The two sets are
// disjoint and together cover every comma-separated entry of the input.
type RecipientList struct {
	Valid   []Recipient
	Invalid []Recipient
}

// InvalidEmails returns the invalid addresses in original order.
func (l *RecipientList) InvalidEmails() []string {
	emails := make([]string, 0, len(l.Invalid))
	for _, r := range l.Invalid {
		emails = append(emails, r.Email)
	}
	return emails
}

// ParseRecipients splits a raw comma-separated recipient string, trims each
// entry and classifies it against RFC address syntax. An empty input is
// rejected before validation runs.
func ParseRecipients(raw string) (*RecipientList, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ValidationError{Reason: ReasonEmptyRecipients}
	}

	list := &RecipientList{}
	for _, part := range strings.Split(raw, ",") {
		recipient := Recipient{Email: strings.TrimSpace(part)}

		if isValidEmail(recipient.Email) {
			list.Valid = append(list.Valid, recipient)
		} else {
			list.Invalid = append(list.Invalid, recipient)
		}
	}

	return list, nil
}

// isValidEmail accepts bare RFC 5322 addresses. Display names are rejected
// so the validated value is exactly the address that gets dialed.
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	return addr.Name == "" && addr.Address == email
}
