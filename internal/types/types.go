package types

import "time"

// Unix timestamp at millisecond resolution
type UnixMilli int64

func Now() UnixMilli {
	return UnixMilli(time.Now().UTC().UnixMilli())
}
