package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DepartmentSeparator 部门路径标签分隔符
const DepartmentSeparator = " / "

// DepartmentNode 部门树节点
type DepartmentNode struct {
	Value    string            `json:"value" yaml:"value"`
	Label    string            `json:"label" yaml:"label"`
	Children []*DepartmentNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// DepartmentTree 部门树
type DepartmentTree struct {
	Roots []*DepartmentNode `json:"roots" yaml:"departments"`
}

// DepartmentOption 级联选择的扁平选项
type DepartmentOption struct {
	Path  []string
	Value string // 路径编码,如 tech/fe/infra
	Label string
	Leaf  bool
}

// DefaultDepartmentTree 内置部门树
func DefaultDepartmentTree() *DepartmentTree {
	return &DepartmentTree{Roots: []*DepartmentNode{
		{
			Value: "tech",
			Label: "技术部",
			Children: []*DepartmentNode{
				{
					Value: "fe",
					Label: "前端组",
					Children: []*DepartmentNode{
						{Value: "infra", Label: "基建团队"},
						{Value: "biz", Label: "业务团队"},
					},
				},
				{Value: "be", Label: "后端组"},
			},
		},
		{
			Value:    "hr",
			Label:    "人力资源部",
			Children: []*DepartmentNode{{Value: "rec", Label: "招聘组"}},
		},
	}}
}

// LoadDepartmentTree 从 YAML 文件加载部门树,路径为空时使用内置部门树
func LoadDepartmentTree(path string) (*DepartmentTree, error) {
	if path == "" {
		return DefaultDepartmentTree(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read department file: %w", err)
	}
	var tree DepartmentTree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse department file: %w", err)
	}
	if len(tree.Roots) == 0 {
		return nil, fmt.Errorf("department file %s has no departments", path)
	}
	return &tree, nil
}

// Label 将部门路径翻译为展示文本,遇到不匹配的节点即停止
func (t *DepartmentTree) Label(path []string) string {
	if len(path) == 0 {
		return Placeholder
	}
	labels := make([]string, 0, len(path))
	level := t.Roots
	for _, seg := range path {
		node := findNode(level, seg)
		if node == nil {
			break
		}
		labels = append(labels, node.Label)
		level = node.Children
	}
	if len(labels) == 0 {
		return Placeholder
	}
	return strings.Join(labels, DepartmentSeparator)
}

// Contains 判断路径是否完整存在于树中
func (t *DepartmentTree) Contains(path []string) bool {
	if len(path) == 0 {
		return false
	}
	level := t.Roots
	for _, seg := range path {
		node := findNode(level, seg)
		if node == nil {
			return false
		}
		level = node.Children
	}
	return true
}

// Options 扁平化部门树,leavesOnly 为 true 时只返回叶子节点
func (t *DepartmentTree) Options(leavesOnly bool) []DepartmentOption {
	var out []DepartmentOption
	var walk func(nodes []*DepartmentNode, prefix []string)
	walk = func(nodes []*DepartmentNode, prefix []string) {
		for _, n := range nodes {
			path := append(append([]string(nil), prefix...), n.Value)
			leaf := len(n.Children) == 0
			if leaf || !leavesOnly {
				out = append(out, DepartmentOption{
					Path:  path,
					Value: EncodeDepartmentPath(path),
					Label: t.Label(path),
					Leaf:  leaf,
				})
			}
			walk(n.Children, path)
		}
	}
	walk(t.Roots, nil)
	return out
}

// DepartmentLeaf 返回路径最深一级的节点值
func DepartmentLeaf(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// EncodeDepartmentPath 路径编码为单个表单值
func EncodeDepartmentPath(path []string) string {
	return strings.Join(path, "/")
}

// DecodeDepartmentPath 解析表单值为路径
func DecodeDepartmentPath(value string) []string {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if value == "" {
		return nil
	}
	return strings.Split(value, "/")
}

func findNode(nodes []*DepartmentNode, value string) *DepartmentNode {
	for _, n := range nodes {
		if n.Value == value {
			return n
		}
	}
	return nil
}
