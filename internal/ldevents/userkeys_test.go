package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKeyCacheNoticeUser(t *testing.T) {
	c := newUserKeyCache(10)
	assert.False(t, c.noticeUser("a"), "never-seen key should report false")
	assert.True(t, c.noticeUser("a"), "already-seen key should report true")
	assert.False(t, c.noticeUser("b"), "a different key is still new")
}

func TestUserKeyCacheClearForgetsEverything(t *testing.T) {
	c := newUserKeyCache(10)
	c.noticeUser("a")
	c.clear()
	assert.False(t, c.noticeUser("a"), "clear() should forget previously-seen keys")
}
