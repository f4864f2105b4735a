// Package proxy provides the chat relay: a small HTTP server that forwards a
// widget's conversation to the completion provider and reports failures to
// the configured notification sinks.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/allie-chat/allieproxy/pkg/llm"
	"github.com/allie-chat/allieproxy/pkg/llm/openai"
	"github.com/allie-chat/allieproxy/pkg/notify"
	"github.com/allie-chat/allieproxy/proxy/header"
	"github.com/allie-chat/allieproxy/proxy/worker"
)

const (
	chatPath = "/chat"
	pingPath = "/ping"

	internalErrorMessage = "Internal Server Error"
	badRequestMessage    = "Bad Request"
)

// Completer produces a chat completion for a message list.
// *openai.Client satisfies this interface.
type Completer interface {
	Complete(ctx context.Context, messages json.RawMessage) (*openai.Completion, error)
}

// Proxy is the chat relay. Requests are independent; the only shared state is
// the notification worker pool.
type Proxy struct {
	config        Config
	upstream      Completer
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	headerHandler *header.Handler
}

// New creates a new Proxy. Every failure is delivered to each of notifiers
// asynchronously; an empty list only logs.
func New(config Config, upstream Completer, notifiers []notify.Notifier, logger *slog.Logger) (*Proxy, error) {
	if upstream == nil {
		return nil, errors.New("upstream completer is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp, err := worker.NewPool(&worker.Config{
		Notifiers:   notifiers,
		NumWorkers:  config.NotifyWorkers,
		QueueSize:   config.NotifyQueueSize,
		SinkTimeout: config.NotifyTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	p := &Proxy{
		config:        config,
		upstream:      upstream,
		workerPool:    wp,
		logger:        logger,
		headerHandler: header.NewHandler(),
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          p.handleError,
	})

	// Panics surface as errors in handleError.
	app.Use(recover.New())

	origins := config.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Use(compress.New())

	app.Get(pingPath, p.handlePing)
	app.Post(chatPath, p.handleChat)

	p.server = app
	return p, nil
}

// Run starts the relay on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting relay",
		"listen", p.config.ListenAddr,
		"upstream", p.config.UpstreamURL,
		"model", p.config.Model,
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the relay using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting relay",
		"listen", listener.Addr().String(),
		"upstream", p.config.UpstreamURL,
		"model", p.config.Model,
	)

	return p.server.Listener(listener)
}

// Close stops accepting requests, then waits for queued notifications to be
// delivered.
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.workerPool.Close()
	return err
}

func (p *Proxy) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleChat relays one conversation. Success returns the upstream body
// untouched; any failure becomes a generic 500 plus an error report.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	req, err := llm.ParseChatRequest(c.Body())
	if err != nil {
		return p.fail(c, err)
	}

	if err := p.config.Limits.Validate(req); err != nil {
		p.logger.Warn("rejected chat request", "error", err)
		p.headerHandler.SetErrorResponseHeaders(c)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: badRequestMessage})
	}

	p.logger.Debug("forwarding chat request",
		"message_count", len(req.Messages),
	)

	// Detached from the request: fasthttp recycles its context once the
	// handler returns, and the upstream call is bounded by the client timeout.
	completion, err := p.upstream.Complete(context.Background(), req.RawMessages)
	if err != nil {
		return p.fail(c, err)
	}

	p.logger.Debug("received completion",
		"bytes", len(completion.Body),
		"upstream_request_id", completion.RequestID,
		"duration", time.Since(startTime),
	)

	p.headerHandler.SetClientResponseHeaders(c, completion.RequestID)
	return c.Status(fiber.StatusOK).Send(completion.Body)
}

// fail logs err, hands a report to the notification pool and answers with
// the generic 500. err never reaches the caller.
func (p *Proxy) fail(c *fiber.Ctx, err error) error {
	report := notify.NewReport(err, time.Now())

	attrs := []any{
		"report_id", report.ID,
		"path", c.Path(),
		"error", err,
	}
	var upErr *llm.UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode != 0 {
		attrs = append(attrs, "upstream_status", upErr.StatusCode)
	}
	p.logger.Error("chat relay failed", attrs...)

	p.workerPool.Enqueue(worker.Job{Report: report})

	p.headerHandler.SetErrorResponseHeaders(c)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: internalErrorMessage})
}

// handleError is the fiber error handler. Routing errors such as 404 keep
// their status; anything else, including recovered panics, is a relay
// failure.
func (p *Proxy) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(llm.ErrorResponse{Error: fe.Message})
	}
	return p.fail(c, err)
}
