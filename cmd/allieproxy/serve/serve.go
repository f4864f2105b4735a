// Package servecmder provides the serve command that runs the chat relay.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allie-chat/allieproxy/pkg/config"
	"github.com/allie-chat/allieproxy/pkg/llm"
	"github.com/allie-chat/allieproxy/pkg/llm/openai"
	"github.com/allie-chat/allieproxy/pkg/logger"
	"github.com/allie-chat/allieproxy/pkg/notify"
	"github.com/allie-chat/allieproxy/pkg/notify/email"
	"github.com/allie-chat/allieproxy/pkg/notify/kafka"
	"github.com/allie-chat/allieproxy/pkg/notify/webhook"
	"github.com/allie-chat/allieproxy/pkg/secrets/paramstore"
	"github.com/allie-chat/allieproxy/proxy"
)

type serveCommander struct {
	port            uint
	corsOrigins     string
	upstreamURL     string
	model           string
	upstreamTimeout time.Duration
	emailFrom       string
	emailTo         string
	webhookURL      string
	notifyTimeout   time.Duration
	ssmPrefix       string
	logFormat       string
	logFile         string

	debug  bool
	logger *slog.Logger
}

// serveFlagKeys are the registry keys bound by the serve command.
var serveFlagKeys = []string{
	config.FlagPort,
	config.FlagCORSOrigins,
	config.FlagUpstreamURL,
	config.FlagModel,
	config.FlagUpstreamTimeout,
	config.FlagEmailFrom,
	config.FlagEmailTo,
	config.FlagWebhookURL,
	config.FlagNotifyTimeout,
	config.FlagSSMPrefix,
	config.FlagLogFormat,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the chat relay.

The relay accepts POST /chat with {"messages": [...]}, forwards the messages
to the completion provider and returns its JSON unchanged. Failures answer
with a generic 500 and are reported by email, webhook and Kafka when those
are configured.

API keys are never accepted as flags. Set OPENAI_API_KEY and RESEND_API_KEY,
put them in the config file, or point --ssm-prefix at AWS SSM.`

const serveShortDesc string = "Run the chat relay"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.LoadForCommand(cmd, config.ServeFlags, serveFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddUintFlag(cmd, config.ServeFlags, config.FlagPort, &cmder.port)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCORSOrigins, &cmder.corsOrigins)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstreamURL, &cmder.upstreamURL)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &cmder.model)
	config.AddDurationFlag(cmd, config.ServeFlags, config.FlagUpstreamTimeout, &cmder.upstreamTimeout)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmailFrom, &cmder.emailFrom)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmailTo, &cmder.emailTo)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagWebhookURL, &cmder.webhookURL)
	config.AddDurationFlag(cmd, config.ServeFlags, config.FlagNotifyTimeout, &cmder.notifyTimeout)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSSMPrefix, &cmder.ssmPrefix)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLogFormat, &cmder.logFormat)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *config.Config) error {
	if cfg.Secrets.SSMPrefix != "" {
		if err := fillSecrets(ctx, cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, closeLog, err := newLogger(cfg.Log, c.debug, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	notifiers, closeSinks, err := c.newNotifiers(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	upstream, err := openai.NewClient(openai.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Model:   cfg.Upstream.Model,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}

	p, err := proxy.New(proxy.Config{
		ListenAddr:  cfg.ListenAddr(),
		CORSOrigins: cfg.Server.CORSOrigins,
		UpstreamURL: cfg.Upstream.BaseURL,
		Model:       cfg.Upstream.Model,
		Limits: llm.Limits{
			MaxMessages:     cfg.Relay.MaxMessages,
			MaxContentBytes: cfg.Relay.MaxContentBytes,
			StrictRoles:     cfg.Relay.StrictRoles,
		},
		NotifyWorkers:   cfg.Notify.Workers,
		NotifyQueueSize: cfg.Notify.QueueSize,
		NotifyTimeout:   cfg.Notify.Timeout,
	}, upstream, notifiers, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		_ = p.Close()
		if err != nil {
			return fmt.Errorf("relay stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Info("shutting down relay")
		if err := p.Close(); err != nil {
			return fmt.Errorf("shutting down relay: %w", err)
		}
		return nil
	}
}

func fillSecrets(ctx context.Context, cfg *config.Config) error {
	store, err := paramstore.NewFromEnvironment(ctx)
	if err != nil {
		return err
	}
	if err := paramstore.Fill(ctx, store, cfg.Secrets.SSMPrefix, cfg); err != nil {
		return fmt.Errorf("reading secrets: %w", err)
	}
	return nil
}

// newNotifiers builds every configured sink. The returned func releases
// sink resources and must run after the proxy has drained.
func (c *serveCommander) newNotifiers(cfg *config.Config) ([]notify.Notifier, func(), error) {
	var (
		notifiers []notify.Notifier
		closers   []io.Closer
	)
	closeAll := func() {
		for _, cl := range closers {
			if err := cl.Close(); err != nil {
				c.logger.Warn("closing notifier", "error", err)
			}
		}
	}

	if cfg.Notify.WebhookURL != "" {
		wh, err := webhook.New(cfg.Notify.WebhookURL, nil)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, wh)
	}

	if cfg.EmailEnabled() {
		em, err := email.New(email.Config{
			APIKey: cfg.Email.APIKey,
			From:   cfg.Email.From,
			To:     cfg.Email.To,
		})
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, em)
	} else {
		c.logger.Warn("email notifications disabled, set email.api_key, email.from and email.to to enable")
	}

	if len(cfg.Notify.Kafka.Brokers) > 0 {
		kn, err := kafka.New(kafka.Config{
			Brokers: cfg.Notify.Kafka.Brokers,
			Topic:   cfg.Notify.Kafka.Topic,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		notifiers = append(notifiers, kn)
		closers = append(closers, kn)
	}

	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		names = append(names, n.Name())
	}
	c.logger.Info("notification sinks configured", "sinks", strings.Join(names, ","))

	return notifiers, closeAll, nil
}

// newLogger builds the process logger: console output in the configured
// format, plus JSON records to lc.File when set.
func newLogger(lc config.LogConfig, debug bool, console io.Writer) (*slog.Logger, func(), error) {
	log := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.Format(lc.Format)),
		logger.WithWriter(console),
	)

	if lc.File == "" {
		return log, func() {}, nil
	}

	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	fileLog := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
	)

	return logger.Tee(log, fileLog), func() {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}, nil
}
