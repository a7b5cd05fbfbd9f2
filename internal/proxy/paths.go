// Package proxy implements the Proxy/Thumbnail Stage (spec.md §4.4): the
// image decode→proxy→thumbnail cascade, the video transcode/head-clip/
// thumbnail triple (which in turn invokes the Video Scene Engine), and the
// --repair resetter. Every derivative path produced here is relative to
// data_dir, per the layout in spec.md §6.2.
package proxy

import (
	"math/big"
	"path/filepath"

	"github.com/google/uuid"
)

// assetShard computes "asset_id mod 1000" (spec.md §6.2) by treating the
// UUID's 16 bytes as a big-endian integer — there is no smaller-magnitude
// field on an Asset to shard by, and this keeps the distribution uniform.
func assetShard(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	return new(big.Int).Mod(n, big.NewInt(1000)).String()
}

// ProxyRelPath is "<library_slug>/proxies/<asset_id mod 1000>/<asset_id>.webp".
func ProxyRelPath(librarySlug string, id uuid.UUID) string {
	return filepath.Join(librarySlug, "proxies", assetShard(id), id.String()+".webp")
}

// ThumbnailRelPath is "<library_slug>/thumbnails/<asset_id mod 1000>/<asset_id>.jpg",
// shared by both image and video assets (spec.md §6.2; Asset.ThumbnailPath
// is one column for either kind).
func ThumbnailRelPath(librarySlug string, id uuid.UUID) string {
	return filepath.Join(librarySlug, "thumbnails", assetShard(id), id.String()+".jpg")
}

// VideoHeadClipRelPath is "video_clips/<library_slug>/<asset_id>/head_clip.mp4"
// — the filename itself is a fixed invariant (spec.md §6.4).
func VideoHeadClipRelPath(librarySlug string, id uuid.UUID) string {
	return filepath.Join("video_clips", librarySlug, id.String(), "head_clip.mp4")
}

// TempRelPath is "tmp/<library_slug>/<uuid>.mp4" — scratch space for the
// ephemeral 720p transcode, deleted on exit regardless of outcome
// (spec.md §4.4, §5 "Shared-resource policy").
func TempRelPath(librarySlug string) string {
	return filepath.Join("tmp", librarySlug, uuid.New().String()+".mp4")
}
