package types

// ServiceStatus tracks the provisioning lifecycle of a local service record
// against its remote panel account.
type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusSuspended ServiceStatus = "suspended"
	ServiceStatusCancelled ServiceStatus = "cancelled"
	ServiceStatusRefunded  ServiceStatus = "refunded"
	ServiceStatusFailed    ServiceStatus = "failed"
)

// ProvisionAction is the resolved intent for one order line item.
type ProvisionAction string

const (
	ProvisionActionCreateSubscriber ProvisionAction = "create_subscriber"
	ProvisionActionExtendSubscriber ProvisionAction = "extend_subscriber"
	ProvisionActionCreateReseller   ProvisionAction = "create_reseller"
	ProvisionActionTopUpReseller    ProvisionAction = "topup_reseller"
)

// LifecycleAction is an entry type in the lifecycle audit log.
type LifecycleAction string

const (
	LifecycleActionProvision     LifecycleAction = "provision"
	LifecycleActionExtend        LifecycleAction = "extend"
	LifecycleActionSuspend       LifecycleAction = "suspend"
	LifecycleActionActivate      LifecycleAction = "activate"
	LifecycleActionCancel        LifecycleAction = "cancel"
	LifecycleActionRefund        LifecycleAction = "refund"
	LifecycleActionExpiryWarning LifecycleAction = "expiry_warning"
)
