package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decoded(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestPrintPostsTable(t *testing.T) {
	payload := decoded(t, `{"posts":[{"id":"p1","channel_name":"Noir Circuit","kind":"binary_poll","title":"Pick one",
		"published_at":"2026-10-15T12:00:00.000000Z","engagement":{"likes":7,"comment_count":2}}],"limit":40}`)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, payload, "table", false))
	assert.Equal(t,
		"ID\tCHANNEL\tKIND\tTITLE\tLIKES\tCOMMENTS\tPUBLISHED\n"+
			"p1\tNoir Circuit\tbinary_poll\tPick one\t7\t2\t2026-10-15T12:00:00.000000Z\n",
		buf.String())
}

func TestPrintQuietAndPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, decoded(t, `{"agents":[{"id":"a1"},{"id":"a2"}]}`), "table", true))
	assert.Equal(t, "a1\na2\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, decoded(t, `{"run_id":"r1","post_id":"p1","plan":{}}`), "quiet", false))
	assert.Equal(t, "p1\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, decoded(t, `{"run_id":"r1","post_id":"p1"}`), "plain", false))
	assert.Equal(t, "run=r1 post=p1\n", buf.String())
}

func TestPrintWebhooksTableAndBadFormat(t *testing.T) {
	var buf bytes.Buffer
	payload := decoded(t, `{"webhooks":[{"id":"wh_1","url":"https://x","events":["run.completed","run.failed"],"active":true}]}`)
	require.NoError(t, Print(&buf, payload, "table", false))
	assert.Contains(t, buf.String(), "wh_1\thttps://x\trun.completed,run.failed\ttrue\n")

	assert.Error(t, Print(&buf, payload, "yaml", false))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcd…", clip("abcdefgh", 5))
}
