package publishers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigsYAML(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: hook
    type: HTTP
    deliver: Failure
    http:
      url: " https://example.com/hook "
      headers:
        X-Token: " abc "
        " ": dropped
  - id: topic
    type: sns
    enabled: false
    sns:
      topic_arn: arn:aws:sns:eu-west-1:123:direct
      region: eu-west-1
`)

	cfgs, err := LoadConfigs(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	hook := cfgs[0]
	assert.Equal(t, TypeHTTP, hook.Type)
	assert.Equal(t, DeliverFailure, hook.Deliver)
	assert.Equal(t, "https://example.com/hook", hook.HTTP.URL)
	assert.Equal(t, defaultHTTPMethod, hook.HTTP.Method)
	assert.Equal(t, defaultHTTPTimeout, hook.HTTP.TimeoutSeconds)
	assert.Equal(t, map[string]string{"X-Token": "abc"}, hook.HTTP.Headers)
	assert.Equal(t, DeliverAll, cfgs[1].Deliver)

	enabled := EnabledOnly(cfgs)
	require.Len(t, enabled, 1)
	assert.Equal(t, "hook", enabled[0].ID)
}

func TestParseConfigsRejectsBadEntries(t *testing.T) {
	for name, tc := range map[string]struct {
		ext, body, want string
	}{
		"missing region":  {".json", `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs/q"}}]}`, "sqs.region"},
		"missing section": {".json", `{"publishers":[{"id":"t","type":"sns"}]}`, "sns section"},
		"duplicate id": {".json", `{"publishers":[
			{"id":"a","type":"http","http":{"url":"https://x"}},
			{"id":"a","type":"http","http":{"url":"https://y"}}]}`, "duplicate id"},
		"unknown key":  {".yml", "publishers:\n  - id: a\n    type: http\n    url: https://x\n", "url"},
		"bad deliver":  {".yml", "publishers:\n  - id: a\n    type: http\n    deliver: sometimes\n    http:\n      url: https://x\n", "deliver"},
		"no type":      {".yml", "publishers:\n  - id: a\n", "type is required"},
		"empty file":   {".yaml", "publishers: []\n", "no publishers"},
		"json unknown": {".json", `{"publishers":[{"id":"a","type":"http","http":{"url":"https://x"},"extra":1}]}`, "extra"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfigs([]byte(tc.body), tc.ext)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfigsMissingFile(t *testing.T) {
	_, err := LoadConfigs(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigs("  ")
	assert.Error(t, err)
}
