package order

import (
	"math/rand"
	"strings"
	"time"
)

const (
	numberAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberSuffixSize = 6

	// MaxNumberAttempts 订单号冲突时的最大重新生成次数
	MaxNumberAttempts = 5
)

// GenerateOrderNumber 生成订单号
// 格式：两位前缀 + YYMMDD + 6位随机[A-Z0-9]，如 OD240315K7Q2ZP
//
// 随机后缀并不保证唯一，调用方在事务内检查是否已存在并重新生成，
// 数据库唯一索引兜底。
func GenerateOrderNumber(prefix string, now time.Time) string {
	var b strings.Builder
	b.Grow(len(prefix) + 6 + numberSuffixSize)
	b.WriteString(strings.ToUpper(prefix))
	b.WriteString(now.Format("060102"))
	for i := 0; i < numberSuffixSize; i++ {
		b.WriteByte(numberAlphabet[rand.Intn(len(numberAlphabet))])
	}
	return b.String()
}
