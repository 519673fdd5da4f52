package enums

// Provider identifies an external platform that delivers events to us.
type Provider string

const (
	ProviderHMS    Provider = "hms"
	ProviderSlack  Provider = "slack"
	ProviderLinear Provider = "linear"
)

func (p Provider) String() string {
	return string(p)
}
