package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
)

// maxResponseBody caps a decoded collection. JSONPlaceholder /posts is ~27KB.
const maxResponseBody = 8 << 20

// BaseAdapter wraps a clients.Client so every call returns domain errors.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a BaseAdapter for the named remote.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// Client returns the underlying HTTP client.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the remote's name.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET and returns the body of a 2xx response; the caller closes it.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)

	return a.checkResponse(resp, err, operation)
}

// PostJSON POSTs v as JSON and returns the body of a 2xx response; the caller closes it.
func (a *BaseAdapter) PostJSON(ctx context.Context, path string, v any, operation string) (io.ReadCloser, error) {
	resp, err := a.client.PostJSON(ctx, path, v)

	return a.checkResponse(resp, err, operation)
}

func (a *BaseAdapter) checkResponse(resp *http.Response, err error, operation string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation, "")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation, "")
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBody)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// Discard drains and closes a body whose content the caller does not need,
// so the connection returns to the pool.
func Discard(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBody))
	_ = body.Close()
}

// Translator converts one remote DTO into a domain value. ok=false drops the item.
type Translator[External any, Domain any] func(ext *External) (value Domain, ok bool)

// TranslateSlice translates items in order, dropping those the translator rejects.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) []D {
	result := make([]D, 0, len(items))

	for i := range items {
		if value, ok := translate(&items[i]); ok {
			result = append(result, value)
		}
	}

	return result
}
