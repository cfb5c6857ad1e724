package regime

import "fmt"

// InsufficientDataError reports a candle series shorter than the minimum its
// rolling windows require. It is a precondition failure: the caller decides
// whether to fetch more history or abort, the pipeline never retries.
type InsufficientDataError struct {
	Granularity string // "1m" or "5m"
	Have        int
	Need        int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient %s candles: have %d, need %d+", e.Granularity, e.Have, e.Need)
}
