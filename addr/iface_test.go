package addr

import (
	"testing"

	"github.com/lxt1045/netsock/sockerr"
	"github.com/stretchr/testify/assert"
)

func TestInterface(t *testing.T) {
	a, err := Interface("no-such-if0", 80)
	assert.Error(t, err)
	assert.NotEqual(t, 0, sockerr.Code(err))
	assert.False(t, a.IsValid())
}

func TestPrivate(t *testing.T) {
	a, err := Private(8080)
	if err != nil {
		// 没有私有地址的环境(例如 CI 容器只有 lo)
		t.Skipf("no private address: %v", err)
	}
	assert.True(t, a.IsValid())
	assert.Equal(t, uint16(8080), a.Port())
}

func TestIPString(t *testing.T) {
	_, err := ipString("interface", "", 80)
	assert.Equal(t, sockerr.EADDRNOTAVAIL, sockerr.Code(err))

	_, err = ipString("interface", "not-an-ip", 80)
	assert.Equal(t, sockerr.EINVAL, sockerr.Code(err))

	a, err := ipString("interface", "192.168.1.10", 80)
	assert.NoError(t, err)
	assert.Equal(t, FromInet4([4]byte{192, 168, 1, 10}, 80), a)
}
