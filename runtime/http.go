package runtime

import (
	"fmt"
	"log"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewHTTPClient builds the registry/container-download HTTP capability:
// retry with backoff on transport errors and 5xx responses, a single
// attempt on 4xx. The returned *http.Client satisfies both
// resolver.HTTPDoer and loader.HTTPDoer's plain Do(*http.Request)
// shape, so a test stub can replace it without any retryablehttp types
// leaking into those packages.
func NewHTTPClient(logger *zap.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.Logger = &retryableLogAdapter{logger: logger}
	return client.StandardClient()
}

// retryableLogAdapter bridges retryablehttp's printf-style Logger
// interface onto structured zap logging, so retry attempts show up in
// the same log stream as the rest of the runtime.
type retryableLogAdapter struct {
	logger *zap.Logger
}

func (a *retryableLogAdapter) Printf(format string, args ...any) {
	if a.logger == nil {
		log.Printf(format, args...)
		return
	}
	if ce := a.logger.Check(zapcore.DebugLevel, "retryablehttp"); ce != nil {
		ce.Write(zap.String("msg", fmt.Sprintf(format, args...)))
	}
}
