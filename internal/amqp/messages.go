package amqp

import (
	"encoding/json"
	"time"
)

// StatementMessage is one bank statement item on its way from the webhook
// endpoint to the ingestion worker. Amounts are signed minor units; the
// currency code is still the numeric ISO form the bank reports.
type StatementMessage struct {
	UserID       string    `json:"user_id"`
	StatementID  string    `json:"statement_id"`
	Account      string    `json:"account"`
	Amount       int64     `json:"amount"`
	CurrencyCode int       `json:"currency_code"`
	Time         int64     `json:"time"`
	Description  string    `json:"description"`
	RawData      string    `json:"raw_data,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

func (m *StatementMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StatementMessageFromJSON(data []byte) (*StatementMessage, error) {
	var msg StatementMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
