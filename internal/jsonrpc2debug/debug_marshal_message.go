package jsonrpc2debug

import (
	"encoding/json"
	"log/slog"

	"golang.org/x/exp/jsonrpc2"
)

// DebugMarshalMessage logs a jsonrpc2 message as its decoded wire form.
type DebugMarshalMessage struct {
	Msg jsonrpc2.Message
}

func (m DebugMarshalMessage) LogValue() slog.Value {
	jsonBytes, err := jsonrpc2.EncodeMessage(m.Msg)
	if err != nil {
		return slog.StringValue("!ENCODE_ERROR: " + err.Error())
	}

	var obj any
	if err := json.Unmarshal(jsonBytes, &obj); err != nil {
		return slog.StringValue(string(jsonBytes))
	}

	return slog.AnyValue(obj)
}
