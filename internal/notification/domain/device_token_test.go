package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, PlatformAndroid, ParsePlatform("ANDROID"))
	assert.Equal(t, PlatformIOS, ParsePlatform("ios"))
	assert.Equal(t, PlatformWeb, ParsePlatform("Web"))
	assert.Equal(t, PlatformAndroid, ParsePlatform(""))
	assert.Equal(t, PlatformAndroid, ParsePlatform("symbian"))
}
