package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequestTagsCopy(t *testing.T) {
	req := Request{"ticks": "R_50"}

	payload, err := encodeRequest(req, 42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticks":"R_50","req_id":42}`, string(payload))

	_, tagged := req[ReqIDField]
	assert.False(t, tagged, "caller's request must not be mutated")
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		reqID   int64
		msgType string
		errMsg  string
		wantErr bool
	}{
		{name: "correlated reply", data: `{"req_id":7,"msg_type":"balance","balance":{"balance":10}}`, reqID: 7, msgType: "balance"},
		{name: "push without id", data: `{"msg_type":"tick","tick":{"quote":1}}`, msgType: "tick"},
		{name: "error payload", data: `{"req_id":3,"msg_type":"buy","error":{"code":"X","message":"bad"}}`, reqID: 3, msgType: "buy", errMsg: "bad"},
		{name: "not json", data: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeResponse([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reqID, resp.ReqID)
			assert.Equal(t, tt.msgType, resp.MsgType)
			if tt.errMsg == "" {
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.errMsg, resp.Error.Error())
			assert.Equal(t, tt.msgType, resp.Error.MsgType)
		})
	}
}

func TestAPIErrorFallbackText(t *testing.T) {
	assert.Equal(t, "gateway error RateLimit", (&APIError{Code: "RateLimit"}).Error())
	assert.Equal(t, "gateway error", (&APIError{}).Error())
}
