package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
)

// --- Inbound Payloads ---

// DataContent is the nested content of a message event. All fields are
// optional on the wire; entities are kept opaque in their original order.
type DataContent struct {
	Type     string            `json:"type,omitempty"`
	Text     string            `json:"text,omitempty"`
	Entities []json.RawMessage `json:"entities,omitempty"`
}

// IsText reports whether the content carries plain text.
func (d *DataContent) IsText() bool { return d != nil && d.Type == DataTypeText }

// IsTyping reports whether the content is a typing indicator.
func (d *DataContent) IsTyping() bool { return d != nil && d.Type == DataTypeTyping }

// Outcome is the decoded form of an inbound server event.
//
// Kind is stamped by Decode from the subscription the payload arrived on; an
// "event" field inside the body is never trusted.
type Outcome struct {
	Kind         Kind         `json:"event"`
	ID           *int64       `json:"id,omitempty"`
	Cid          int64        `json:"cid"`
	CidType      string       `json:"cidType,omitempty"`
	SenderID     *int64       `json:"senderId,omitempty"`
	Type         string       `json:"type,omitempty"`
	Data         *DataContent `json:"data,omitempty"`
	DataType     string       `json:"dataType,omitempty"`
	CallbackData string       `json:"callbackData,omitempty"`
}

// rawOutcome mirrors the wire shape before validation. Cid stays a
// json.Number so presence and integer-ness are checked explicitly instead of
// defaulting to zero.
type rawOutcome struct {
	ID           *int64          `json:"id"`
	Cid          *json.Number    `json:"cid"`
	CidType      string          `json:"cidType"`
	SenderID     *int64          `json:"senderId"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
	DataType     string          `json:"dataType"`
	CallbackData string          `json:"callbackData"`
}

// Decode validates a raw inbound payload and stamps it with kind. Decoding
// the same structured payload twice yields field-equal outcomes.
func Decode(kind Kind, raw []byte) (*Outcome, error) {
	var r rawOutcome
	if err := json.Unmarshal(raw, &r); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &ValidationError{Field: typeErr.Field, Reason: "unexpected " + typeErr.Value}
		}
		return nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}

	cid, err := requireCid(r.Cid)
	if err != nil {
		return nil, err
	}

	data, err := decodeData(r.Data)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Kind:         kind,
		ID:           r.ID,
		Cid:          cid,
		CidType:      r.CidType,
		SenderID:     r.SenderID,
		Type:         r.Type,
		Data:         data,
		DataType:     r.DataType,
		CallbackData: r.CallbackData,
	}, nil
}

func requireCid(n *json.Number) (int64, error) {
	if n == nil {
		return 0, &ValidationError{Field: "cid", Reason: "required"}
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	// Some server builds send cid as an integral float. Fractional values
	// and magnitudes beyond int64 stay rejected; math.MaxInt64 rounds up to
	// 2^63 as a float64, which makes the upper comparison exclusive.
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &ValidationError{Field: "cid", Reason: "must be an integer, got " + n.String()}
	}
	return int64(f), nil
}

// decodeData handles the three wire forms of the data field: absent, a JSON
// object, or a string. A string is parsed as a nested JSON object; when that
// parse fails the value degrades to plain text instead of failing the event.
func decodeData(raw json.RawMessage) (*DataContent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ValidationError{Field: "data", Reason: err.Error()}
		}
		inner := bytes.TrimSpace([]byte(s))
		if len(inner) > 0 && inner[0] == '{' && json.Valid(inner) {
			var content DataContent
			if err := json.Unmarshal(inner, &content); err != nil {
				return nil, &ValidationError{Field: "data", Reason: err.Error()}
			}
			return &content, nil
		}
		return &DataContent{Type: DataTypeText, Text: s}, nil
	}

	var content DataContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &ValidationError{Field: "data", Reason: err.Error()}
	}
	return &content, nil
}
