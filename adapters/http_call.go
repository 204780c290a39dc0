package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/context/ctxhttp"
)

// RequestData packages together the fields needed to make an http.Request.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
}

// ResponseData packages together information from the server's http.Response.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsNoContent is true for a 204, which delegates treat as "no bids" rather than a failure.
func (r *ResponseData) IsNoContent() bool {
	return r != nil && r.StatusCode == http.StatusNoContent
}

// Do makes a request bounded by ctx. A response outside the 2xx and 3xx range is returned along
// with an error, so callers can still log the body.
func (a *HTTPAdapter) Do(ctx context.Context, req *RequestData) (*ResponseData, error) {
	httpReq, err := http.NewRequest(req.Method, req.Uri, bytes.NewBuffer(req.Body))
	if err != nil {
		return nil, err
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers
	}

	httpResp, err := ctxhttp.Do(ctx, a.Client, httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	response := &ResponseData{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 400 {
		return response, fmt.Errorf("Server responded with failure status: %d.", httpResp.StatusCode)
	}
	return response, nil
}
