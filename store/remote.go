package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"github.com/tclemos/map-bench/benchmark"
)

// ResultsPath is the endpoint of the results server
const ResultsPath = "/api/results"

const defaultRemoteTimeout = 10 * time.Second

// Remote talks to a running results server
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote returns a client for the results server at baseURL
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if baseURL == "" {
		baseURL = DefaultResultsURL
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Append posts the records as a JSON array. The server answers {"success": true}.
func (r *Remote) Append(ctx context.Context, records []benchmark.ResultRecord) error {
	body, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encoding records")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+ResultsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := r.do(req)
	if err != nil {
		return benchmark.PersistenceError(err, "append")
	}
	if res := gjson.GetBytes(data, "success"); !res.Bool() {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = "server did not acknowledge the records"
		}
		return benchmark.PersistenceError(errors.New(msg), "append")
	}
	return nil
}

// List fetches every stored record
func (r *Remote) List(ctx context.Context) ([]benchmark.ResultRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+ResultsPath, nil)
	if err != nil {
		return nil, err
	}
	data, err := r.do(req)
	if err != nil {
		return nil, benchmark.PersistenceError(err, "list")
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		return nil, benchmark.PersistenceError(errors.New("response is not a JSON array"), "list")
	}

	var records []benchmark.ResultRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decoding records")
	}
	return records, nil
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) do(req *http.Request) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Newf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return data, nil
}
