package types

// PanelFamily identifies which of the two supported panel backends a product
// provisions against. The two families have incompatible authentication and
// capability sets, so they are dispatched on rather than unified.
type PanelFamily string

const (
	// PanelFamilyXtreamUI authenticates with a session cookie obtained from a
	// login form and drives the panel through its web forms.
	PanelFamilyXtreamUI PanelFamily = "xtreamui"

	// PanelFamilyXuiOne authenticates with an access code and API key, with an
	// undocumented session cookie requirement for some actions.
	PanelFamilyXuiOne PanelFamily = "xuione"
)

func (f PanelFamily) Validate() bool {
	switch f {
	case PanelFamilyXtreamUI, PanelFamilyXuiOne:
		return true
	}
	return false
}

// AccountType distinguishes end-subscriber lines from reseller accounts.
type AccountType string

const (
	AccountTypeSubscriber AccountType = "subscriber"
	AccountTypeReseller   AccountType = "reseller"
)

func (t AccountType) Validate() bool {
	return t == AccountTypeSubscriber || t == AccountTypeReseller
}
