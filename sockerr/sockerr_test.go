package sockerr

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, 0, Code(nil))
	})
	t.Run("errno", func(t *testing.T) {
		assert.Equal(t, EAFNOSUPPORT, Code(syscall.Errno(EAFNOSUPPORT)))
	})
	t.Run("syscall-error", func(t *testing.T) {
		err := os.NewSyscallError("bind", syscall.Errno(EADDRINUSE))
		assert.Equal(t, EADDRINUSE, Code(err))
	})
	t.Run("op-error", func(t *testing.T) {
		err := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.Errno(ECONNREFUSED))}
		assert.Equal(t, ECONNREFUSED, Code(err))
	})
	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", &Error{Op: "socket", Code: EINVAL})
		assert.Equal(t, EINVAL, Code(err))
	})
	t.Run("dns", func(t *testing.T) {
		assert.Equal(t, EAINoName, Code(&net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}))
		assert.Equal(t, EAIAgain, Code(&net.DNSError{Err: "timeout", Name: "x", IsTimeout: true}))
		assert.Equal(t, EAIFail, Code(&net.DNSError{Err: "server misbehaving", Name: "x"}))
	})
	t.Run("deadline", func(t *testing.T) {
		assert.Equal(t, ETIMEDOUT, Code(os.ErrDeadlineExceeded))
	})
	t.Run("unknown", func(t *testing.T) {
		code := Code(errors.New("something else"))
		assert.Equal(t, Unknown, code)
		assert.NotEqual(t, 0, code)
	})
}

func TestError(t *testing.T) {
	err := Wrap("bind", syscall.Errno(EAFNOSUPPORT))
	assert.Equal(t, "bind", err.Op)
	assert.Equal(t, EAFNOSUPPORT, err.Code)
	assert.ErrorIs(t, err, syscall.Errno(EAFNOSUPPORT))
	assert.Contains(t, err.Error(), "bind: ")

	assert.Nil(t, Wrap("bind", nil))

	// 已经是 *Error 的保持原操作名
	again := Wrap("other", err)
	assert.Equal(t, "bind", again.Op)

	assert.True(t, (&Error{Code: EAGAIN}).Temporary())
	assert.False(t, (&Error{Code: EINVAL}).Temporary())
	assert.Nil(t, (&Error{Code: Unknown}).Unwrap())
}

func TestLastError(t *testing.T) {
	var le LastError
	assert.Equal(t, 0, le.Get())

	err := le.Record("connect", syscall.Errno(ECONNREFUSED))
	assert.Error(t, err)
	assert.Equal(t, ECONNREFUSED, le.Get())

	// 成功的操作会覆盖上一次的错误
	assert.NoError(t, le.Record("send", nil))
	assert.Equal(t, 0, le.Get())

	_ = le.Fail("accept", EINVAL)
	assert.Equal(t, EINVAL, le.Get())
	le.Clear()
	assert.Equal(t, 0, le.Get())

	var nilLE *LastError
	assert.Equal(t, 0, nilLE.Get())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(0))
	assert.NotEmpty(t, Message(EAFNOSUPPORT))
	assert.Equal(t, "unknown socket error", Message(Unknown))
	assert.Equal(t, "name or service not known", Message(EAINoName))
}
