package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/resilience"
)

// JSON-RPC methods exposed by the platform's fallback endpoint.
const (
	methodFetch  = "GeoTargets.Fetch"
	methodAdd    = "GeoTargets.Add"
	methodRemove = "CampaignCriteria.Remove"
)

// rpcServerError is the low end of the JSON-RPC implementation-defined
// server error range; codes at or below it are retried.
const rpcServerError = -32000

type rpcTransport struct {
	url        string
	customerID string
	token      string
	http       *http.Client
	seq        atomic.Int64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type rpcParams struct {
	CustomerID    string   `json:"customerId"`
	CampaignID    string   `json:"campaignId,omitempty"`
	GeoTargets    []string `json:"geoTargetConstants,omitempty"`
	ResourceNames []string `json:"resourceNames,omitempty"`
}

func (t *rpcTransport) name() string { return "rpc" }

func (t *rpcTransport) fetch(ctx context.Context, campaignID string) ([]model.ExistingTarget, error) {
	var res restFetchResponse
	params := rpcParams{CustomerID: t.customerID, CampaignID: campaignID}
	if err := t.call(ctx, "fetch", methodFetch, params, &res); err != nil {
		return nil, err
	}
	out := make([]model.ExistingTarget, len(res.GeoTargets))
	for i, g := range res.GeoTargets {
		out[i] = model.ExistingTarget{ResourceName: g.ResourceName, CriteriaID: g.CriteriaID}
	}
	return out, nil
}

func (t *rpcTransport) add(ctx context.Context, campaignID string, ids []string) ([]string, error) {
	var res restMutateResponse
	params := rpcParams{CustomerID: t.customerID, CampaignID: campaignID, GeoTargets: ids}
	if err := t.call(ctx, "add", methodAdd, params, &res); err != nil {
		return nil, err
	}
	return resultNames(res), nil
}

func (t *rpcTransport) remove(ctx context.Context, handles []string) ([]string, error) {
	var res restMutateResponse
	params := rpcParams{CustomerID: t.customerID, ResourceNames: handles}
	if err := t.call(ctx, "remove", methodRemove, params, &res); err != nil {
		return nil, err
	}
	return resultNames(res), nil
}

func (t *rpcTransport) call(ctx context.Context, op, method string, params, out any) error {
	id := t.seq.Add(1)
	buf, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return eris.Wrap(err, "platform: marshal rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "platform: create rpc request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(err, "platform: rpc request")
		}
		return resilience.Transient(eris.Wrapf(err, "platform: rpc %s", op), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "platform: read rpc response"), 0)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("rpc", op, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return eris.Wrap(err, "platform: decode rpc response")
	}
	if rr.ID != id {
		return eris.Errorf("platform: rpc response id %d does not match request %d", rr.ID, id)
	}
	if rr.Error != nil {
		e := &Error{Transport: "rpc", Op: op, Code: rr.Error.Code, Message: rr.Error.Message}
		if rr.Error.Code <= rpcServerError && rr.Error.Code > -32100 {
			return resilience.Transient(e, 0)
		}
		return e
	}
	if len(rr.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return eris.Wrap(err, "platform: decode rpc result")
	}
	return nil
}
