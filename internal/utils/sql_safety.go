package utils

import "strings"

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike 转义 LIKE 通配符,配合 ESCAPE '\' 使用,用户输入按字面匹配
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}
