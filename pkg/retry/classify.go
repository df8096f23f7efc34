package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// MySQL服务端错误号
const (
	mysqlLockWaitTimeout = 1205 // Lock wait timeout exceeded
	mysqlDeadlock        = 1213 // Deadlock found when trying to get lock
	mysqlServerGone      = 2006 // MySQL server has gone away
	mysqlLostConnection  = 2013 // Lost connection to MySQL server during query
)

// 兜底匹配的错误信息片段（部分驱动只返回字符串错误）
var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"server closed",
	"server has gone away",
	"i/o timeout",
	"bad connection",
	"invalid connection",
}

// IsRetryable 判断错误是否为可重试的瞬时故障
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// 上下文取消/超时：调用方已放弃，重试没有意义
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 业务错误（4xx）永远不重试
	if apperrors.IsBusiness(err) {
		return false
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock, mysqlServerGone, mysqlLostConnection:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
