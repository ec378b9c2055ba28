package lobby

import (
	"math/rand/v2"
	"strings"
)

const (
	// CodeAlphabet 去掉易混淆的 I、O、0、1
	CodeAlphabet           = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength             = 6
	DefaultMaxCodeAttempts = 100
)

// NormalizeCode 去除空白并转为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// randomCode 从 alphabet 中随机取 length 个字符
func randomCode(alphabet string, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
