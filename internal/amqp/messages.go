package amqp

import (
	"encoding/json"
	"time"
)

// ResetEmailMessage carries a password-reset code from the API to the
// notify worker, which renders and sends the actual email.
type ResetEmailMessage struct {
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	PhoneHint   string    `json:"phone_hint"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewResetEmailMessage(email, code, phoneHint string) *ResetEmailMessage {
	return &ResetEmailMessage{
		Email:       email,
		Code:        code,
		PhoneHint:   phoneHint,
		RequestedAt: time.Now(),
	}
}

func (m *ResetEmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ResetEmailMessageFromJSON(data []byte) (*ResetEmailMessage, error) {
	var msg ResetEmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
