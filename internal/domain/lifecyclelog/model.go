package lifecyclelog

import (
	"time"

	"github.com/streambill/streambill/internal/types"
)

// Entry is one row of the lifecycle audit log: every automated or
// admin-triggered status transition on a service is recorded here so
// operators can reconstruct what happened to a paid item.
type Entry struct {
	ID          string                `db:"id" json:"id"`
	ServiceID   string                `db:"service_id" json:"service_id"`
	CustomerID  string                `db:"customer_id" json:"customer_id"`
	Action      types.LifecycleAction `db:"action" json:"action"`
	Reason      string                `db:"reason" json:"reason"`
	TriggeredBy string                `db:"triggered_by" json:"triggered_by"`
	OldStatus   types.ServiceStatus   `db:"old_status" json:"old_status,omitempty"`
	NewStatus   types.ServiceStatus   `db:"new_status" json:"new_status,omitempty"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}
