package notify

import (
	"context"
	"fmt"
	"log"
)

// DispatchFailure records one alert that could not be delivered
type DispatchFailure struct {
	Alert Alert
	Err   error
}

func (f DispatchFailure) Error() string {
	return fmt.Sprintf("failed to deliver alert for district %d: %v", f.Alert.DistrictID, f.Err)
}

// DispatchResult summarizes one delivery pass over a list of alerts
type DispatchResult struct {
	Sent     int
	Failures []DispatchFailure
}

// Dispatch attempts delivery of every alert independently, collecting
// per-item failures instead of aborting. Delivery outcome never feeds back
// into the ledger: an alerting district stays alerting whether or not its
// message got through, and retries simply re-dispatch the reader's output.
func Dispatch(ctx context.Context, notifier Notifier, alerts []Alert) *DispatchResult {
	result := &DispatchResult{}
	for _, alert := range alerts {
		if err := notifier.Send(ctx, alert); err != nil {
			log.Printf("Failed to send alert for district %d: %v", alert.DistrictID, err)
			result.Failures = append(result.Failures, DispatchFailure{Alert: alert, Err: err})
			continue
		}
		result.Sent++
	}
	return result
}
