// Package overflow handles artifacts too large for direct attachment:
// they are uploaded to shared storage and delivered as a link instead.
package overflow

import "context"

// Uploader stores a local artifact remotely and returns a link anyone
// with the URL can download from.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}
