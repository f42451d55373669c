package domain

import (
	"encoding/json"
	"time"
)

// StatsSnapshot is a point-in-time, non-persisted aggregate of queue and job
// counts plus the live real-time connection count. Engine holds whatever the
// engine's own system stats call returned; on key collision the dashboard's
// locally computed fields win.
type StatsSnapshot struct {
	TotalQueues      int
	TotalJobs        int
	ActiveJobs       int
	FailedJobs       int
	ConnectedClients int
	Engine           map[string]interface{}
}

func (s StatsSnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Engine)+5)
	for k, v := range s.Engine {
		out[k] = v
	}
	out["totalQueues"] = s.TotalQueues
	out["totalJobs"] = s.TotalJobs
	out["activeJobs"] = s.ActiveJobs
	out["failedJobs"] = s.FailedJobs
	out["connectedClients"] = s.ConnectedClients
	return json.Marshal(out)
}

// ActivityItem is the projection used by the recent-activity endpoint.
type ActivityItem struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Status      JobStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	QueueID     string    `json:"queueId"`
}
