package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand_Text(t *testing.T) {
	stdout, _, err := runCommand(t, "", "parse", `select tags->'Name' from "eu-west-1".ec2_instances i join s3_buckets on 1 = 1`)
	require.NoError(t, err)

	assert.Equal(t, `SELECT json_get(tags, 'Name') FROM "eu-west-1" . ec2_instances i JOIN s3_buckets ON 1 = 1

Tables:
  eu-west-1.ec2_instances AS i
  s3_buckets
`, stdout)
}

func TestParseCommand_NoTables(t *testing.T) {
	stdout, _, err := runCommand(t, "", "parse", "select 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1\n", stdout)
}

func TestParseCommand_JSON(t *testing.T) {
	_, resp, err := runCommandJSON(t, "", "parse", "select name from s3_buckets b")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SELECT name FROM s3_buckets b", data["canonical"])
	assert.Equal(t, []any{map[string]any{"name": "s3_buckets", "alias": "b"}}, data["tables"])
}

func TestParseCommand_Error(t *testing.T) {
	_, resp, err := runCommandJSON(t, "", "parse", "select * from")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParsing, resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestParseCommand_RequiresQuery(t *testing.T) {
	_, _, err := runCommand(t, "", "parse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
