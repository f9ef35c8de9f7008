package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kode4food/paisley/pkg/api"
)

var ErrHTTPStatus = errors.New("step endpoint returned status")

const httpUserAgent = "paisley-engine"

// HTTPFunc adapts a remote endpoint into a step function. Arguments
// are POSTed as a JSON object and the decoded JSON response body
// becomes the step output. A non-2xx status is an error carrying the
// status code, which lets the retry catalogue classify 429s and 5xx
// responses as transient
func HTTPFunc(endpoint string, client *http.Client) Func {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, args api.Args) (any, error) {
		body, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, endpoint, bytes.NewReader(body),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", httpUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w %d: %s",
				ErrHTTPStatus, resp.StatusCode, resp.Status)
		}

		if len(bytes.TrimSpace(respBody)) == 0 {
			return nil, nil
		}
		var value any
		if err := json.Unmarshal(respBody, &value); err != nil {
			return nil, err
		}
		return value, nil
	}
}
