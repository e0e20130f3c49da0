package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyShow(t *testing.T) {
	cfgPath := writeTempFile(t, "jsonsql.yaml", testConfigYAML+`
  denied:
    columns:
      - password
`)

	out, _, err := runCLI(t, "", "policy", "show", "--config", cfgPath, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Allowed entities")
	assert.Contains(t, out, "SELECT")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "Column kinds")
	assert.Contains(t, out, "integer")
	assert.Contains(t, out, "Denied entities")
	assert.Contains(t, out, "password")
}

func TestPolicyShowDefaultJoinTypes(t *testing.T) {
	cfgPath := writeTempFile(t, "jsonsql.yaml", testConfigYAML)

	out, _, err := runCLI(t, "", "policy", "show", "--config", cfgPath, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "INNER JOIN")
	assert.Contains(t, out, "CROSS JOIN")
}

func TestPolicyInitRefusesOverwrite(t *testing.T) {
	existing := writeTempFile(t, "jsonsql.yaml", testConfigYAML)

	_, _, err := runCLI(t, "", "policy", "init", "--output", existing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b ,"))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" ,, "))
}
