// Package paramstore reads API credentials from AWS SSM Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/allie-chat/allieproxy/pkg/config"
)

// Parameter names below the configured prefix.
const (
	OpenAIKeyName = "openai-api-key"
	ResendKeyName = "resend-api-key"
)

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter fetches one decrypted parameter by name.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// NewFromEnvironment builds a Client from the default AWS credential chain
// (env, shared config, instance role).
func NewFromEnvironment(ctx context.Context) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("paramstore: loading aws config: %w", err)
	}
	return New(ssm.NewFromConfig(awsCfg))
}

// GetParameter returns the decrypted value of name.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// Fill reads every empty API key in cfg from <prefix>/<name>. Keys that are
// already set are left alone and never fetched.
func Fill(ctx context.Context, g Getter, prefix string, cfg *config.Config) error {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return errors.New("paramstore: prefix is required")
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{OpenAIKeyName, &cfg.Upstream.APIKey},
		{ResendKeyName, &cfg.Email.APIKey},
	}

	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		value, err := g.GetParameter(ctx, prefix+"/"+t.name)
		if err != nil {
			return err
		}
		*t.dst = value
	}
	return nil
}
