// Package server exposes the aggregated notebook tools and the stored images
// over the Model Context Protocol.
//
// Every tool of every enabled backend is registered under its plain name and
// dispatched through the backend Aggregator. Images kept by the image store
// are readable through the resource template
//
//	jupyter://sessions/{session_id}/images/{image_file}
//
// and each stored image is additionally listed as a concrete resource until
// its session is purged.
package server
