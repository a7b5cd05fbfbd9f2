package proxy

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAssetShard_Deterministic(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, assetShard(id), assetShard(id))
}

func TestProxyRelPath_Shape(t *testing.T) {
	id := uuid.New()
	got := ProxyRelPath("mylib", id)
	assert.True(t, strings.HasPrefix(got, "mylib/proxies/"))
	assert.True(t, strings.HasSuffix(got, id.String()+".webp"))
}

func TestThumbnailRelPath_Shape(t *testing.T) {
	id := uuid.New()
	got := ThumbnailRelPath("mylib", id)
	assert.True(t, strings.HasPrefix(got, "mylib/thumbnails/"))
	assert.True(t, strings.HasSuffix(got, id.String()+".jpg"))
}

func TestVideoHeadClipRelPath_IsFixedFilename(t *testing.T) {
	id := uuid.New()
	got := VideoHeadClipRelPath("mylib", id)
	assert.Equal(t, "video_clips/mylib/"+id.String()+"/head_clip.mp4", got)
}

func TestTempRelPath_UnderTmpAndUnique(t *testing.T) {
	a := TempRelPath("mylib")
	b := TempRelPath("mylib")
	assert.True(t, strings.HasPrefix(a, "tmp/mylib/"))
	assert.NotEqual(t, a, b)
}
