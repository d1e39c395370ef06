package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/model"
)

// TestLoadSchema 测试从 YAML 加载表单结构
func TestLoadSchema(t *testing.T) {
	content := `
- field: projectName
  name: 审批项目
  component: Input
  validator:
    required: true
    maxCount: 20
- field: budget
  name: 预算
  component: Input
`
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fields, err := model.LoadSchema(path)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.True(t, fields[0].Required())
	assert.Equal(t, 20, fields[0].MaxCount())
	assert.False(t, fields[1].Required())

	fields, err = model.LoadSchema("")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSchema(), fields)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- name: 缺少字段\n"), 0o644))
	_, err = model.LoadSchema(bad)
	assert.Error(t, err)
}
