package linear

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	raw := []byte(`{"action": "create", "type": "Issue", "webhookTimestamp": 1725000000000, "data": {"id": "x"}}`)
	ts, err := Timestamp(raw)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1725000000000), ts)

	_, err = Timestamp([]byte(`{"action": "create", "type": "Issue", "data": {}}`))
	assert.Error(t, err)
}

func TestParseIssueCreate(t *testing.T) {
	raw := []byte(`{
		"action": "create",
		"type": "Issue",
		"organizationId": "ws_42",
		"webhookTimestamp": 1725000000000,
		"data": {
			"id": "iss_1",
			"identifier": "ENG-42",
			"title": "Fix pagination",
			"state": {"name": "In Progress"},
			"teamId": "team_9"
		}
	}`)

	event, err := Parse(raw)
	require.NoError(t, err)

	issue, ok := event.(IssueUpserted)
	require.True(t, ok)
	assert.Equal(t, "ws_42", issue.WorkspaceID)
	assert.Equal(t, "iss_1", issue.IssueID)
	assert.Equal(t, "ENG-42", issue.Identifier)
	assert.Equal(t, "In Progress", issue.State)
}

func TestParseIssueUpdateAndRemove(t *testing.T) {
	updated, err := Parse([]byte(`{"action": "update", "type": "Issue", "data": {"id": "iss_1", "title": "t"}}`))
	require.NoError(t, err)
	_, ok := updated.(IssueUpserted)
	assert.True(t, ok)

	removed, err := Parse([]byte(`{"action": "remove", "type": "Issue", "data": {"id": "iss_1"}}`))
	require.NoError(t, err)
	gone, ok := removed.(IssueRemoved)
	require.True(t, ok)
	assert.Equal(t, "iss_1", gone.IssueID)
}

func TestParseCommentCreated(t *testing.T) {
	event, err := Parse([]byte(`{
		"action": "create",
		"type": "Comment",
		"data": {"id": "com_1", "issueId": "iss_1", "body": "looks good"}
	}`))
	require.NoError(t, err)

	comment, ok := event.(CommentCreated)
	require.True(t, ok)
	assert.Equal(t, "com_1", comment.CommentID)
	assert.Equal(t, "iss_1", comment.IssueID)
}

func TestParseUnknownTypesAreUnsupported(t *testing.T) {
	event, err := Parse([]byte(`{"action": "create", "type": "Project", "data": {}}`))
	require.NoError(t, err)
	unsupported, ok := event.(Unsupported)
	require.True(t, ok)
	assert.Equal(t, "Project.create", unsupported.Type)

	event, err = Parse([]byte(`{"action": "update", "type": "Comment", "data": {}}`))
	require.NoError(t, err)
	_, ok = event.(Unsupported)
	assert.True(t, ok)
}

func TestParseRejectsInvalidPayloads(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"data": {}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"action": "create", "type": "Issue", "data": {}}`))
	assert.Error(t, err)
}
