// Package imagestore keeps binary execution outputs (plots, rendered images)
// in memory and hands out stable resource locators for them.
//
// A locator has the fixed shape
//
//	jupyter://sessions/<session>/images/<artifact-id>.<ext>
//
// and is the only public identity of a stored image. The same locator is
// returned by code execution, accepted by the get_image_resource tool, and
// served through MCP resources/read.
//
// # Lifecycle
//
// Images are added with [Store.Put] and removed only in bulk with
// [Store.Purge] when their owning session is torn down. There is no time
// based eviction and no size cap.
//
// # Lookups
//
// [Store.Get] reports a single "not found" outcome for malformed locators,
// unknown ids, and locators naming the wrong session, so callers cannot use
// it to probe which ids exist.
package imagestore
