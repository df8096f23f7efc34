package retry

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/pkg/metrics"
)

// Observe 记录重试日志与指标的Notify
func Observe(operation string) Notify {
	return func(err error, attempt int, wait time.Duration) {
		metrics.RecordStoreRetry(operation)
		log.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"wait":      wait,
		}).Warn("存储操作失败，准备重试")
	}
}
