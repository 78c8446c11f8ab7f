package session

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReqIDField is the reserved field carrying the correlation id on both directions.
const ReqIDField = "req_id"

// Request is an outbound frame: message-type specific fields, without req_id.
type Request map[string]interface{}

// Response is a decoded inbound frame. Raw keeps the full payload so callers can decode the
// message-type specific part themselves.
type Response struct {
	ReqID   int64
	MsgType string
	Error   *APIError
	Raw     []byte
}

type envelope struct {
	ReqID   *int64    `json:"req_id"`
	MsgType string    `json:"msg_type"`
	Error   *APIError `json:"error"`
}

func decodeResponse(data []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	resp := &Response{MsgType: env.MsgType, Raw: data}
	if env.ReqID != nil {
		resp.ReqID = *env.ReqID
	}
	if env.Error != nil {
		env.Error.MsgType = env.MsgType
		resp.Error = env.Error
	}
	return resp, nil
}

// Decode unmarshals the full frame into v.
func (r *Response) Decode(v interface{}) error {
	if r == nil {
		return fmt.Errorf("decode %T: empty response", v)
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode %s reply: %w", r.MsgType, err)
	}
	return nil
}

func encodeRequest(req Request, id int64) ([]byte, error) {
	frame := make(map[string]interface{}, len(req)+1)
	for k, v := range req {
		frame[k] = v
	}
	frame[ReqIDField] = id
	return json.Marshal(frame)
}
