package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitRedisAddr(t *testing.T) {
	host, port := splitRedisAddr("redis:6380")
	assert.Equal(t, "redis", host)
	assert.Equal(t, 6380, port)

	// bare host falls back to the default redis port
	host, port = splitRedisAddr("localhost")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6379, port)
}
