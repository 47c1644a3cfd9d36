package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS  = "sqs"
	TypeSNS  = "sns"
	TypeHTTP = "http"
)

// Delivery filters select which outcomes a publisher receives.
const (
	DeliverAll     = "all"
	DeliverSuccess = "success"
	DeliverFailure = "failure"
)

const (
	defaultHTTPMethod  = "POST"
	defaultHTTPTimeout = 5
)

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one entry of the publishers file.
type PublisherConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Deliver is one of all, success or failure. Empty means all.
	Deliver string               `json:"deliver,omitempty" yaml:"deliver,omitempty"`
	SQS     *SQSPublisherConfig  `json:"sqs,omitempty" yaml:"sqs,omitempty"`
	SNS     *SNSPublisherConfig  `json:"sns,omitempty" yaml:"sns,omitempty"`
	HTTP    *HTTPPublisherConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// SQSPublisherConfig holds AWS SQS settings.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSPublisherConfig holds AWS SNS settings.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// IsEnabled reports the enabled flag; entries without one are enabled.
func (cfg PublisherConfig) IsEnabled() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Descriptor returns the identity the built publisher will carry.
func (cfg PublisherConfig) Descriptor() Descriptor {
	return Descriptor{ID: cfg.ID, Type: cfg.Type}
}

// LoadConfigs reads and validates every entry of the publishers file at path.
// The format follows the extension: .json is JSON, anything else YAML. Unknown
// keys are rejected in both.
func LoadConfigs(path string) ([]PublisherConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return ParseConfigs(raw, filepath.Ext(path))
}

// ParseConfigs decodes publishers file content. ext selects the format as in
// LoadConfigs.
func ParseConfigs(raw []byte, ext string) ([]PublisherConfig, error) {
	var file configFile
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json publishers: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode yaml publishers: %w", err)
		}
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file declares no publishers")
	}

	seen := make(map[string]bool, len(file.Publishers))
	out := make([]PublisherConfig, 0, len(file.Publishers))
	for i, cfg := range file.Publishers {
		cfg = cfg.normalized()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if seen[cfg.ID] {
			return nil, fmt.Errorf("publishers[%d]: duplicate id %q", i, cfg.ID)
		}
		seen[cfg.ID] = true
		out = append(out, cfg)
	}
	return out, nil
}

// EnabledOnly filters cfgs down to enabled entries.
func EnabledOnly(cfgs []PublisherConfig) []PublisherConfig {
	out := make([]PublisherConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}

func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.Deliver = strings.ToLower(strings.TrimSpace(cfg.Deliver))
	if cfg.Deliver == "" {
		cfg.Deliver = DeliverAll
	}

	switch {
	case cfg.SQS != nil:
		sqs := *cfg.SQS
		sqs.QueueURL, sqs.Region = strings.TrimSpace(sqs.QueueURL), strings.TrimSpace(sqs.Region)
		cfg.SQS = &sqs
	case cfg.SNS != nil:
		sns := *cfg.SNS
		sns.TopicARN, sns.Region = strings.TrimSpace(sns.TopicARN), strings.TrimSpace(sns.Region)
		cfg.SNS = &sns
	case cfg.HTTP != nil:
		hook := *cfg.HTTP
		hook.URL = strings.TrimSpace(hook.URL)
		hook.Method = strings.ToUpper(strings.TrimSpace(hook.Method))
		if hook.Method == "" {
			hook.Method = defaultHTTPMethod
		}
		if hook.TimeoutSeconds <= 0 {
			hook.TimeoutSeconds = defaultHTTPTimeout
		}
		headers := make(map[string]string, len(hook.Headers))
		for k, v := range hook.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		hook.Headers = headers
		cfg.HTTP = &hook
	}
	return cfg
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Deliver {
	case DeliverAll, DeliverSuccess, DeliverFailure:
	default:
		return fmt.Errorf("publisher %q: deliver must be all, success or failure, got %q", cfg.ID, cfg.Deliver)
	}

	var missing []string
	switch cfg.Type {
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("publisher %q: sqs section is required", cfg.ID)
		}
		missing = blank(map[string]string{"sqs.uri": cfg.SQS.QueueURL, "sqs.region": cfg.SQS.Region})
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("publisher %q: sns section is required", cfg.ID)
		}
		missing = blank(map[string]string{"sns.topic_arn": cfg.SNS.TopicARN, "sns.region": cfg.SNS.Region})
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("publisher %q: http section is required", cfg.ID)
		}
		missing = blank(map[string]string{"http.url": cfg.HTTP.URL})
	case "":
		return fmt.Errorf("publisher %q: type is required", cfg.ID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("publisher %q: missing %s", cfg.ID, strings.Join(missing, ", "))
	}
	return nil
}

func blank(fields map[string]string) []string {
	var out []string
	for name, v := range fields {
		if v == "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
