package service

import (
	"bytes"
	"encoding/json"
	"net/http"

	"jsonrelay/internal/model"
)

// Normalize turns an upstream reply into the outbound response.
//
// A JSON body is re-indented with two spaces, keeping key order and number
// literals as sent. The status is the upstream status when it is 2xx and 502
// otherwise. A non-JSON body yields a *BadResponseError carrying the raw text.
func Normalize(resp *model.UpstreamResponse) (*model.OutboundResponse, error) {
	raw := bytes.TrimSpace(resp.Body)
	if !json.Valid(raw) {
		return nil, &BadResponseError{Status: resp.StatusCode, Raw: string(resp.Body)}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, &BadResponseError{Status: resp.StatusCode, Raw: string(resp.Body)}
	}

	return &model.OutboundResponse{
		StatusCode: outboundStatus(resp.StatusCode),
		Body:       buf.Bytes(),
	}, nil
}

func outboundStatus(upstream int) int {
	if upstream >= 200 && upstream < 300 {
		return upstream
	}
	return http.StatusBadGateway
}
