package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorDecoder turns a non-2xx response body into an error.
type ErrorDecoder func(statusCode int, body []byte) error

// Do sends req and decodes a 2xx JSON body into Resp.
func Do[Resp any](client *http.Client, req *http.Request, decodeErr ErrorDecoder) (*Resp, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, decodeErr(resp.StatusCode, body)
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &out, nil
}
