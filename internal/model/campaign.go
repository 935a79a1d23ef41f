package model

import "time"

// EmailStatus tracks one email within a generated outreach sequence.
type EmailStatus string

const (
	EmailPending   EmailStatus = "pending"
	EmailScheduled EmailStatus = "scheduled"
	EmailSent      EmailStatus = "sent"
	EmailOpened    EmailStatus = "opened"
	EmailResponded EmailStatus = "responded"
)

// ContactTiming holds the preferred send days and windows for a contractor.
// Days are weekday names, windows are 12-hour clock strings ("9:00 AM").
type ContactTiming struct {
	BestDayEmail1 string `json:"best_day_email_1"`
	BestDayEmail2 string `json:"best_day_email_2"`
	BestDayEmail3 string `json:"best_day_email_3"`
	WindowATime   string `json:"window_a_time"`
	WindowBTime   string `json:"window_b_time"`
}

// EmailSequence is one of the three generated outreach emails.
type EmailSequence struct {
	EmailNumber   int         `json:"email_number"` // 1-3
	Subject       string      `json:"subject"`
	Body          string      `json:"body"`
	Status        EmailStatus `json:"status"`
	SentDate      *time.Time  `json:"sent_date,omitempty"`
	OpenedDate    *time.Time  `json:"opened_date,omitempty"`
	RespondedDate *time.Time  `json:"responded_date,omitempty"`
}

// CampaignRecord is a generated outreach campaign for one contractor.
type CampaignRecord struct {
	BusinessID     string          `json:"business_id"`
	CompanyName    string          `json:"company_name"`
	ContactTiming  ContactTiming   `json:"contact_timing"`
	EmailSequences []EmailSequence `json:"email_sequences"`
}

// SentCount returns how many sequence emails have been sent (or beyond).
func (c *CampaignRecord) SentCount() int {
	n := 0
	for _, e := range c.EmailSequences {
		switch e.Status {
		case EmailSent, EmailOpened, EmailResponded:
			n++
		}
	}
	return n
}

// SequenceByNumber returns the sequence email with the given 1-based
// number, or nil.
func (c *CampaignRecord) SequenceByNumber(n int) *EmailSequence {
	for i := range c.EmailSequences {
		if c.EmailSequences[i].EmailNumber == n {
			return &c.EmailSequences[i]
		}
	}
	return nil
}

// Complete reports whether every sequence email has gone out.
func (c *CampaignRecord) Complete() bool {
	return len(c.EmailSequences) > 0 && c.SentCount() == len(c.EmailSequences)
}
