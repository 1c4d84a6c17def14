package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/go-auth-client/pkg/log"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type (
	ClientOption func(*ClientImpl)

	// RequestInterceptor mutates the outgoing request headers right before sending.
	// A returned error aborts the request.
	RequestInterceptor func(ctx context.Context, header http.Header) error

	Client interface {
		NewRequest(ctx context.Context) *resty.Request
		BaseURL() string
		DeleteHeader(name string)
		With(opts ...ClientOption) Client
	}

	ClientImpl struct {
		RESTClient *resty.Client
		baseURL    string
		opts       []ClientOption
	}

	ResponseError struct {
		Method     string
		URL        string
		StatusCode int
		Body       []byte
	}
)

func NewClient(opts ...ClientOption) Client {
	client := &ClientImpl{
		RESTClient: resty.New(),
		opts:       opts,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *ClientImpl) NewRequest(ctx context.Context) *resty.Request {
	return c.RESTClient.NewRequest().SetContext(ctx)
}

func (c *ClientImpl) BaseURL() string {
	return c.baseURL
}

// DeleteHeader removes a default header from all future requests.
func (c *ClientImpl) DeleteHeader(name string) {
	c.RESTClient.Header.Del(name)
}

func (c *ClientImpl) With(opts ...ClientOption) Client {
	mergedOpts := make([]ClientOption, 0, len(c.opts)+len(opts))
	mergedOpts = append(mergedOpts, c.opts...)
	mergedOpts = append(mergedOpts, opts...)
	return NewClient(mergedOpts...)
}

func WithBaseURL(url string) ClientOption {
	return func(c *ClientImpl) {
		c.baseURL = url
		c.RESTClient.SetBaseURL(url)
	}
}

func WithHeader(name, value string) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.SetHeader(name, value)
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.SetTransport(transport)
	}
}

// WithRequestInterceptor installs the single pre-request hook of the client.
// It sees the final request headers, defaults included.
func WithRequestInterceptor(interceptor RequestInterceptor) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			return interceptor(req.Context(), req.Header)
		})
	}
}

func WithRequestLogging(logger log.Logger, infoLevel, errorLevel log.Level) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			entry := logger.With(log.Fields{
				"method":   resp.Request.Method,
				"url":      resp.Request.URL,
				"code":     resp.StatusCode(),
				"duration": resp.Time().String(),
			})

			if resp.StatusCode() >= http.StatusInternalServerError {
				entry.Log(resp.Request.Context(), errorLevel, "http call completed with internal error")
			} else {
				entry.Log(resp.Request.Context(), infoLevel, "http call completed")
			}

			return nil
		})

		c.RESTClient.OnError(func(req *resty.Request, err error) {
			logger.
				With(log.Fields{
					"method": req.Method,
					"url":    req.URL,
				}).
				WithError(err).
				Log(req.Context(), errorLevel, "http call completed with error")
		})
	}
}

// CheckResponse turns a transport error or a non-2xx response into an error.
func CheckResponse(resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ResponseError{
			Method:     resp.Request.Method,
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}
	}
	return resp, nil
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: %s %d", e.Method, e.URL, ErrUnexpectedStatus, e.StatusCode)
}

func (e *ResponseError) Unwrap() error {
	return ErrUnexpectedStatus
}
