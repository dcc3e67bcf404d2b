package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/resilience"
)

type restTransport struct {
	baseURL    string
	customerID string
	token      string
	http       *http.Client
}

type restTarget struct {
	ResourceName string `json:"resourceName"`
	CriteriaID   string `json:"criteriaId"`
}

type restFetchResponse struct {
	GeoTargets []restTarget `json:"geoTargets"`
}

type restAddRequest struct {
	GeoTargetConstants []string `json:"geoTargetConstants"`
}

type restRemoveRequest struct {
	ResourceNames []string `json:"resourceNames"`
}

type restMutateResponse struct {
	Results []struct {
		ResourceName string `json:"resourceName"`
	} `json:"results"`
}

type restErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (t *restTransport) name() string { return "rest" }

func (t *restTransport) campaignPath(campaignID string) string {
	return fmt.Sprintf("/v1/customers/%s/campaigns/%s/geoTargets",
		url.PathEscape(t.customerID), url.PathEscape(campaignID))
}

func (t *restTransport) fetch(ctx context.Context, campaignID string) ([]model.ExistingTarget, error) {
	var resp restFetchResponse
	if err := t.do(ctx, "fetch", http.MethodGet, t.campaignPath(campaignID), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.ExistingTarget, len(resp.GeoTargets))
	for i, g := range resp.GeoTargets {
		out[i] = model.ExistingTarget{ResourceName: g.ResourceName, CriteriaID: g.CriteriaID}
	}
	return out, nil
}

func (t *restTransport) add(ctx context.Context, campaignID string, ids []string) ([]string, error) {
	var resp restMutateResponse
	body := restAddRequest{GeoTargetConstants: ids}
	if err := t.do(ctx, "add", http.MethodPost, t.campaignPath(campaignID)+":add", body, &resp); err != nil {
		return nil, err
	}
	return resultNames(resp), nil
}

func (t *restTransport) remove(ctx context.Context, handles []string) ([]string, error) {
	var resp restMutateResponse
	path := fmt.Sprintf("/v1/customers/%s/campaignCriteria:remove", url.PathEscape(t.customerID))
	if err := t.do(ctx, "remove", http.MethodPost, path, restRemoveRequest{ResourceNames: handles}, &resp); err != nil {
		return nil, err
	}
	return resultNames(resp), nil
}

func resultNames(resp restMutateResponse) []string {
	out := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ResourceName != "" {
			out = append(out, r.ResourceName)
		}
	}
	return out
}

func (t *restTransport) do(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "platform: marshal rest request")
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(t.baseURL, "/")+path, rdr)
	if err != nil {
		return eris.Wrap(err, "platform: create rest request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(err, "platform: rest request")
		}
		return resilience.Transient(eris.Wrapf(err, "platform: rest %s", op), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "platform: read rest response"), 0)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		var eb restErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return statusError("rest", op, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "platform: decode rest response")
	}
	return nil
}
