package texture_cache

// TextureCacheBuilderOption is a functional option for configuring a textureCache.
type TextureCacheBuilderOption func(*textureCache)

// WithRetentionFrames sets how many frames a texture may go unused before it is released.
// Values below 1 are ignored.
//
// Parameters:
//   - frames: the retention period in frames
//
// Returns:
//   - TextureCacheBuilderOption: option function to apply
func WithRetentionFrames(frames int) TextureCacheBuilderOption {
	return func(c *textureCache) {
		if frames >= 1 {
			c.retentionFrames = frames
		}
	}
}
