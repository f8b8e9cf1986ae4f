package bridge

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
)

const defaultContentType = "text/plain"

// requestOptions is the JSON options object scripts may pass to get/post.
type requestOptions struct {
	Headers      map[string]string `json:"headers"`
	ResponseType string            `json:"responseType"`
	ContentType  string            `json:"contentType"`
}

// HTTP exposes get/post to the sandbox.
type HTTP struct {
	client *Client
	log    *logging.Logger
}

// NewHTTP creates the HTTP bridge capability.
func NewHTTP(client *Client, log *logging.Logger) *HTTP {
	return &HTTP{
		client: client,
		log:    log.Named("bridge.http"),
	}
}

// Bind builds the sandbox-facing object.
func (h *HTTP) Bind(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	obj.Set("get", h.Get)
	obj.Set("post", h.Post)
	return obj
}

// Get issues a blocking HTTP GET. Non-2xx responses are logged but their
// body is still returned; any transport or parse failure yields "".
func (h *HTTP) Get(url, optionsJSON string) string {
	opts, ok := h.parseOptions(optionsJSON)
	if !ok {
		return ""
	}

	req, err := h.client.Request(context.Background())
	if err != nil {
		h.log.Warn("request rejected", zap.String("url", url), zap.Error(err))
		return ""
	}
	req.SetHeaders(opts.Headers)

	resp, err := req.Get(url)
	if err != nil {
		h.log.Warn("get failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return h.render(url, resp.StatusCode(), resp.Body(), opts)
}

// Post issues a blocking HTTP POST with body as the request payload.
// Content type defaults to text/plain; an explicit Content-Type header
// overrides it, and the contentType option takes final precedence.
func (h *HTTP) Post(url, body, optionsJSON string) string {
	opts, ok := h.parseOptions(optionsJSON)
	if !ok {
		return ""
	}

	contentType := defaultContentType
	for k, v := range opts.Headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = v
		}
	}
	if opts.ContentType != "" {
		contentType = opts.ContentType
	}

	req, err := h.client.Request(context.Background())
	if err != nil {
		h.log.Warn("request rejected", zap.String("url", url), zap.Error(err))
		return ""
	}
	req.SetHeaders(opts.Headers)
	req.SetHeader("Content-Type", contentType)
	req.SetBody(body)

	resp, err := req.Post(url)
	if err != nil {
		h.log.Warn("post failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return h.render(url, resp.StatusCode(), resp.Body(), opts)
}

func (h *HTTP) parseOptions(optionsJSON string) (requestOptions, bool) {
	var opts requestOptions
	if strings.TrimSpace(optionsJSON) == "" {
		return opts, true
	}
	if err := sonic.UnmarshalString(optionsJSON, &opts); err != nil {
		h.log.Warn("malformed request options", zap.Error(err))
		return opts, false
	}
	return opts, true
}

func (h *HTTP) render(url string, status int, body []byte, opts requestOptions) string {
	if limit := h.client.maxBody; limit > 0 && int64(len(body)) > limit {
		h.log.Warn("response too large",
			zap.String("url", url),
			zap.Int("bytes", len(body)))
		return ""
	}
	if status < 200 || status > 299 {
		h.log.Warn("non-2xx response",
			zap.String("url", url),
			zap.Int("status", status))
	}

	if strings.EqualFold(opts.ResponseType, "hex") {
		return hex.EncodeToString(body)
	}
	return sanitize(string(body))
}

// sanitize strips a leading BOM and surrounding whitespace from decoded
// response text.
func sanitize(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF"))
}
