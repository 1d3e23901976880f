package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresRegionAndBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), S3Config{Region: "eu-west-1"})
	assert.Error(t, err)
}

func TestBuildObjectKeyShardsByDate(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

	key := buildObjectKey("Holiday Picture.PNG", now)
	assert.True(t, strings.HasPrefix(key, "media/2026/03/07/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	bare := buildObjectKey("noext", now)
	assert.True(t, strings.HasPrefix(bare, "media/2026/03/07/"), bare)
	assert.NotContains(t, bare[len("media/2026/03/07/"):], ".")
}

func TestBuildObjectKeyIsUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key := buildObjectKey(fmt.Sprintf("f%d.png", i%3), now)
		require.False(t, seen[key], "key %s generated twice", key)
		seen[key] = true
	}
}

func TestFileURLJoinsPublicBase(t *testing.T) {
	c := &Client{cfg: S3Config{PublicBase: "https://cdn.example.com/"}}
	assert.Equal(t, "https://cdn.example.com/media/2026/01/01/x.png", c.FileURL("media/2026/01/01/x.png"))

	c = &Client{cfg: S3Config{PublicBase: "https://cdn.example.com"}}
	assert.Equal(t, "https://cdn.example.com/media/2026/01/01/x.png", c.FileURL("media/2026/01/01/x.png"))

	c = &Client{cfg: S3Config{}}
	assert.Equal(t, "", c.FileURL("media/x.png"))
	assert.Equal(t, "", c.FileURL(""))
}
