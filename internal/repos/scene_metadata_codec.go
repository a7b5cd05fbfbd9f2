package repos

import "encoding/json"

// unmarshalSceneMetadata decodes a VideoScene.Metadata blob into dst. It
// lives in its own file because both video_scene_repo.go and any future
// reader of scene metadata need the same lenient decode step.
func unmarshalSceneMetadata(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
