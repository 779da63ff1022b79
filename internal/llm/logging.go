package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type logged struct {
	inner   Provider
	log     *zap.Logger
	timeout time.Duration
}

// WithLogging logs every request with its latency and token usage, and
// bounds each call by timeout when it is positive.
func WithLogging(p Provider, log *zap.Logger, timeout time.Duration) Provider {
	return &logged{inner: p, log: log, timeout: timeout}
}

func (l *logged) ModelID() string { return l.inner.ModelID() }

func (l *logged) Generate(ctx context.Context, req Request) (*Response, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	fields := []zap.Field{
		zap.String("model", l.inner.ModelID()),
		zap.Duration("latency", time.Since(start)),
	}
	if req.Schema != nil {
		fields = append(fields, zap.String("schema", req.Schema.Name))
	}
	if err != nil {
		l.log.Warn("llm request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.log.Info("llm request",
		append(fields,
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
			zap.Bool("truncated", resp.Truncated),
		)...)
	return resp, nil
}

// ReadImage forwards to the wrapped provider when it can read images.
func (l *logged) ReadImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	reader, ok := l.inner.(ImageReader)
	if !ok {
		return "", ErrNotConfigured
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	text, err := reader.ReadImage(ctx, image, mimeType)
	if err != nil {
		l.log.Warn("llm image read failed", zap.String("model", l.inner.ModelID()), zap.Error(err))
	}
	return text, err
}
