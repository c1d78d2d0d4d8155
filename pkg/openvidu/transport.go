package openvidu

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LingByte/LingVidu/pkg/constants"
	"github.com/LingByte/LingVidu/pkg/metrics"
	"github.com/bytedance/sonic"
	"github.com/carlmjohnson/requests"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// response is what the server answered, whatever the status
type response struct {
	status    int
	body      []byte
	requestID string
}

// transport attaches the base URL, credential, user agent and timeout to every call
type transport struct {
	baseURL   string
	secret    string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
	maxBody   int
}

func newTransport(baseURL, secret string, timeout Timeout, hc *http.Client, logger *zap.Logger) (*transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, invalidArgumentf("invalid url %q: %v", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, invalidArgumentf("url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if hc == nil {
		hc = newHTTPClient(timeout.withDefaults())
	}
	return &transport{
		baseURL:   u.String(),
		secret:    secret,
		userAgent: constants.ClientName + "/" + constants.ClientVersion,
		client:    hc,
		logger:    logger,
		maxBody:   constants.MaxBodyBytes,
	}, nil
}

func newHTTPClient(timeout Timeout) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout.Connect,
		KeepAlive: 30 * time.Second,
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = timeout.Connect
	tr.ResponseHeaderTimeout = timeout.Read
	return &http.Client{
		Transport: tr,
		Timeout:   timeout.Connect + timeout.Read,
	}
}

func acceptAnyStatus(*http.Response) error { return nil }

// do sends one request. endpoint is a low-cardinality label used for logs and metrics.
// Transport failures are returned as they come from the HTTP client.
func (t *transport) do(ctx context.Context, method, endpoint, path string, body interface{}) (*response, error) {
	res := &response{requestID: uuid.NewString()}

	rb := requests.
		URL(t.baseURL + path).
		Client(t.client).
		Method(method).
		BasicAuth(constants.BasicAuthUser, t.secret).
		UserAgent(t.userAgent).
		Header(constants.HeaderRequestID, res.requestID).
		AddValidator(acceptAnyStatus).
		Handle(func(r *http.Response) error {
			res.status = r.StatusCode
			b, err := io.ReadAll(io.LimitReader(r.Body, int64(t.maxBody)+1))
			res.body = b
			return err
		})
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		rb.BodyBytes(payload).ContentType(constants.ContentTypeJSON)
	}

	start := time.Now()
	if err := rb.Fetch(ctx); err != nil {
		metrics.ObserveTransportError(method, endpoint)
		t.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", res.requestID),
			zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.ObserveRequest(method, endpoint, res.status, elapsed)
	if len(res.body) > t.maxBody {
		t.logger.Warn("response too large",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("limit", t.maxBody),
			zap.String("request_id", res.requestID))
		return nil, ErrUnexpectedResponse.WithStatus(res.status).
			WithCause(fmt.Errorf("response body exceeds %d bytes", t.maxBody))
	}
	t.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.status),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", res.requestID))
	return res, nil
}

// pathf formats a REST path relative to the base URL, escaping each id segment.
// The result is already encoded and must not go through requests.Builder.Path.
func pathf(format string, ids ...string) string {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
