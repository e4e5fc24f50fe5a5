package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMd(t *testing.T) {
	assert.Equal(t, "a\\*b\\_c\\`d\\~e", EscapeMd("a*b_c`d~e"))
	assert.Equal(t, "plain", EscapeMd("plain"))
}

func TestPrettyTime(t *testing.T) {
	assert.Equal(t, "0:05", PrettyTime(5))
	assert.Equal(t, "2:03", PrettyTime(123))
	assert.Equal(t, "1:01:05", PrettyTime(3665))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "long…", Truncate("long string", 5))
	assert.Equal(t, "whole", Truncate("whole", 0))
}
