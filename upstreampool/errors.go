// File: upstreampool/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package upstreampool

import (
	"fmt"

	"github.com/momentics/edgeproxy/api"
)

// ErrPoolClosed is returned by Acquire after Close. It wraps
// api.ErrTransportClosed so callers can test for the broader category
// with errors.Is without depending on this package's specific message.
var ErrPoolClosed = fmt.Errorf("upstreampool: pool closed: %w", api.ErrTransportClosed)
