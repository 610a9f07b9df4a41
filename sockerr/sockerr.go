package sockerr

import (
	"errors"
	"net"
	"os"
	"syscall"
)

// Error 是平台调用失败时返回的错误，Code 保留平台原始数值
type Error struct {
	Op   string
	Code int
}

func (e *Error) Error() string {
	if e.Op == "" {
		return Message(e.Code)
	}
	return e.Op + ": " + Message(e.Code)
}

// Unwrap 返回平台 errno，便于 errors.Is(err, unix.EAFNOSUPPORT)
func (e *Error) Unwrap() error {
	if e.Code <= 0 {
		return nil
	}
	return syscall.Errno(e.Code)
}

// Temporary reports whether retrying the same call may succeed.
// SO_RCVTIMEO 超时在 unix 上是 EAGAIN，在 windows 上是 ETIMEDOUT
func (e *Error) Temporary() bool {
	c := e.Code
	return c == EAGAIN || c == EWOULDBLOCK || c == EINTR || c == ETIMEDOUT
}

// Wrap 将平台错误转成 *Error；err 为 nil 时返回 nil
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Op == "" {
			return &Error{Op: op, Code: se.Code}
		}
		return se
	}
	return &Error{Op: op, Code: Code(err)}
}

// Code translates an error returned by the platform layer into its integer
// code. nil maps to 0, errors that carry no platform code map to Unknown.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return EAINoName
		case dnsErr.IsTemporary, dnsErr.IsTimeout:
			return EAIAgain
		}
		return EAIFail
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ETIMEDOUT
	}
	if errors.Is(err, net.ErrClosed) {
		return EBADF
	}
	return Unknown
}

// Message 返回错误码对应的平台描述
func Message(code int) string {
	switch code {
	case 0:
		return ""
	case Unknown:
		return "unknown socket error"
	case EAINoName:
		return "name or service not known"
	case EAIAgain:
		return "temporary failure in name resolution"
	case EAIFail:
		return "non-recoverable failure in name resolution"
	}
	return syscall.Errno(code).Error()
}

// LastError 记录某个句柄上最近一次操作的错误码，0 表示没有错误。
// 不加锁，同一个句柄的并发访问由调用方保证。
type LastError struct {
	code int
}

func (e *LastError) Get() int {
	if e == nil {
		return 0
	}
	return e.code
}

func (e *LastError) Clear() {
	e.code = 0
}

func (e *LastError) Set(code int) {
	e.code = code
}

// Record 在失败现场保存错误码并返回 *Error；成功(err == nil)时清零
func (e *LastError) Record(op string, err error) error {
	se := Wrap(op, err)
	if se == nil {
		e.code = 0
		return nil
	}
	e.code = se.Code
	return se
}

// Fail 直接按错误码记录一次失败
func (e *LastError) Fail(op string, code int) error {
	e.code = code
	return &Error{Op: op, Code: code}
}
